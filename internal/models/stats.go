package models

import "time"

// Statistics holds the derived dashboard counters. All groupings are computed
// over the full record set of the active backend at evaluation time.
type Statistics struct {
	Total        int            `json:"total"`
	ByBranch     map[string]int `json:"byBranch"`
	ByYear       map[string]int `json:"byYear"`
	ByDivision   map[string]int `json:"byDivision"`
	Last24Hours  int            `json:"last24Hours"`
	Last7Days    int            `json:"last7Days"`
	EmailDomains map[string]int `json:"emailDomains"`
	Backend      BackendKind    `json:"backend"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}
