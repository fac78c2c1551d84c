// Command backend_diff compares the student rosters held by the two data
// backends and reports records that exist on only one side or whose fields
// drifted apart. Useful after a backend switch to verify nothing was lost.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/campusforms/registry-api/internal/adapter"
	"github.com/campusforms/registry-api/internal/models"
)

type drift struct {
	ID     string
	Fields []string
}

func main() {
	var (
		apiBase    string
		legacyBase string
		token      string
		timeout    time.Duration
	)

	flag.StringVar(&apiBase, "api-base", "http://localhost:8080/api", "Registry API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:5000/api", "Legacy API base URL")
	flag.StringVar(&token, "token", "", "Session token for the registry API")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	primary, err := fetchPrimary(client, apiBase, token)
	if err != nil {
		log.Fatalf("failed to fetch primary roster: %v", err)
	}
	legacy, err := fetchLegacy(client, legacyBase)
	if err != nil {
		log.Fatalf("failed to fetch legacy roster: %v", err)
	}

	onlyPrimary, onlyLegacy, drifts := compare(primary, legacy)
	printReport(onlyPrimary, onlyLegacy, drifts)

	if len(onlyPrimary)+len(onlyLegacy)+len(drifts) > 0 {
		os.Exit(1)
	}
}

func fetchPrimary(client *http.Client, base, token string) ([]models.Student, error) {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+"/students?limit=100", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data []models.Student `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func fetchLegacy(client *http.Client, base string) ([]models.Student, error) {
	resp, err := client.Get(strings.TrimRight(base, "/") + "/students")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data []adapter.RestDoc `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(envelope.Data))
	for _, doc := range envelope.Data {
		students = append(students, adapter.FromRest(doc))
	}
	return students, nil
}

func compare(primary, legacy []models.Student) (onlyPrimary, onlyLegacy []string, drifts []drift) {
	legacyByID := make(map[string]models.Student, len(legacy))
	for _, s := range legacy {
		legacyByID[s.ID] = s
	}

	seen := make(map[string]struct{}, len(primary))
	for _, p := range primary {
		seen[p.ID] = struct{}{}
		l, ok := legacyByID[p.ID]
		if !ok {
			onlyPrimary = append(onlyPrimary, p.ID)
			continue
		}
		if fields := diffFields(p, l); len(fields) > 0 {
			drifts = append(drifts, drift{ID: p.ID, Fields: fields})
		}
	}

	for _, l := range legacy {
		if _, ok := seen[l.ID]; !ok {
			onlyLegacy = append(onlyLegacy, l.ID)
		}
	}
	return onlyPrimary, onlyLegacy, drifts
}

func diffFields(a, b models.Student) []string {
	var fields []string
	// Names are compared joined, since the legacy side only stores the
	// concatenation and the split is lossy for multi-word surnames.
	if a.FullName() != b.FullName() {
		fields = append(fields, "name")
	}
	if a.RollNumber != b.RollNumber {
		fields = append(fields, "rollNumber")
	}
	if a.ZPRNNumber != b.ZPRNNumber {
		fields = append(fields, "zprnNumber")
	}
	if a.Branch != b.Branch || a.BranchOther != b.BranchOther {
		fields = append(fields, "branch")
	}
	if a.Year != b.Year {
		fields = append(fields, "year")
	}
	if a.Division != b.Division {
		fields = append(fields, "division")
	}
	if !strings.EqualFold(a.Email, b.Email) {
		fields = append(fields, "email")
	}
	if a.ContactNumber != b.ContactNumber {
		fields = append(fields, "contactNumber")
	}
	return fields
}

func printReport(onlyPrimary, onlyLegacy []string, drifts []drift) {
	fmt.Println("Backend Diff Report")
	fmt.Println("===================")
	fmt.Printf("Only in primary: %d\n", len(onlyPrimary))
	for _, id := range onlyPrimary {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("Only in legacy: %d\n", len(onlyLegacy))
	for _, id := range onlyLegacy {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("Drifted: %d\n", len(drifts))
	for _, d := range drifts {
		fmt.Printf("  %s: %s\n", d.ID, strings.Join(d.Fields, ", "))
	}
}
