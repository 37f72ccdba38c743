package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "users":
		handleUsers(args)
	case "beds":
		handleBeds(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleUsers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: placements users <me|search|allocatable|roles|pdu|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "me":
		whoAmI(args[1:])
	case "search":
		searchUsers(args[1:])
	case "allocatable":
		listAllocatable(args[1:])
	case "roles":
		updateRoles(args[1:])
	case "pdu":
		updatePdu(args[1:])
	case "delete":
		deleteUser(args[1:])
	default:
		fmt.Printf("unknown users command: %s\n", subCmd)
	}
}

func handleBeds(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: placements beds <search-ap|search-ta>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "search-ap":
		searchApBeds(args[1:])
	case "search-ta":
		searchTaBeds(args[1:])
	default:
		fmt.Printf("unknown beds command: %s\n", subCmd)
	}
}

// User commands
func whoAmI(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/users/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %s\n", resp.Status)
		return
	}

	var user map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&user)
	fmt.Printf("✓ %v (%v)\n", user["name"], user["deliusUsername"])
	fmt.Printf("  region: %v\n", user["region"])
	fmt.Printf("  roles: %v\n", user["roles"])
	fmt.Printf("  qualifications: %v\n", user["qualifications"])
}

func searchUsers(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	name := fs.String("name", "", "partial name to match")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/users?name="+*name, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %s\n", resp.Status)
		return
	}

	var result struct {
		Users []map[string]interface{} `json:"users"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	printUserTable(result.Users)
}

func listAllocatable(args []string) {
	fs := flag.NewFlagSet("allocatable", flag.ExitOnError)
	crn := fs.String("crn", "", "case reference number")
	permission := fs.String("permission", "", "allocation permission, e.g. allocate_assessment")

	fs.Parse(args)

	if *crn == "" || *permission == "" {
		fmt.Println("Error: crn and permission are required")
		fs.PrintDefaults()
		return
	}

	url := fmt.Sprintf("%s/users/allocatable?crn=%s&permission=%s", getAPIURL(), *crn, *permission)
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %s\n", resp.Status)
		return
	}

	var result struct {
		Users []map[string]interface{} `json:"users"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	printUserTable(result.Users)
}

func updateRoles(args []string) {
	fs := flag.NewFlagSet("roles", flag.ExitOnError)
	id := fs.String("id", "", "user id")
	service := fs.String("service", "approved-premises", "service name")
	roles := fs.String("roles", "", "comma-separated role names")
	quals := fs.String("qualifications", "", "comma-separated qualifications")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"service":        *service,
		"roles":          splitCSV(*roles),
		"qualifications": splitCSV(*quals),
	}
	data, _ := json.Marshal(payload)

	req, _ := http.NewRequest("PUT", getAPIURL()+"/users/"+*id+"/roles", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Roles updated for user %s\n", *id)
	} else {
		fmt.Printf("✗ Update failed: %s\n", resp.Status)
	}
}

func updatePdu(args []string) {
	fs := flag.NewFlagSet("pdu", flag.ExitOnError)
	id := fs.String("id", "", "user id")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest("PUT", getAPIURL()+"/users/"+*id+"/pdu", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 || resp.StatusCode == 204 {
		fmt.Printf("✓ PDU refreshed for user %s\n", *id)
	} else {
		fmt.Printf("✗ Update failed: %s\n", resp.Status)
	}
}

func deleteUser(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "user id")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/users/"+*id, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 || resp.StatusCode == 204 {
		fmt.Printf("✓ User %s deactivated\n", *id)
	} else {
		fmt.Printf("✗ Delete failed: %s\n", resp.Status)
	}
}

// Bed search commands
func searchApBeds(args []string) {
	fs := flag.NewFlagSet("search-ap", flag.ExitOnError)
	outcode := fs.String("outcode", "", "postcode district, e.g. SW1")
	distance := fs.Int("distance", 50, "max distance in miles")
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	weeks := fs.Int("weeks", 1, "duration in weeks")
	characteristics := fs.String("characteristics", "", "comma-separated property names")

	fs.Parse(args)

	if *outcode == "" || *start == "" {
		fmt.Println("Error: outcode and start are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"postcodeDistrictOutcode": *outcode,
		"maxDistanceMiles":        *distance,
		"startDate":               *start,
		"durationInWeeks":         *weeks,
		"requiredCharacteristics": splitCSV(*characteristics),
	}
	postBedSearch("/beds/search/approved-premises", payload)
}

func searchTaBeds(args []string) {
	fs := flag.NewFlagSet("search-ta", flag.ExitOnError)
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	days := fs.Int("days", 1, "duration in days")

	fs.Parse(args)

	if *start == "" {
		fmt.Println("Error: start is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"startDate":      *start,
		"durationInDays": *days,
	}
	postBedSearch("/beds/search/temporary-accommodation", payload)
}

func postBedSearch(path string, payload map[string]interface{}) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 400 {
		var problem map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&problem)
		fmt.Printf("✗ Bad request: %v\n", problem["invalid-params"])
		return
	}
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Search failed: %s\n", resp.Status)
		return
	}

	var result struct {
		Results []map[string]interface{} `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PREMISES\tROOM\tBED\tDISTANCE")
	for _, row := range result.Results {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", row["premisesName"], row["roomName"], row["bedName"], row["distanceMiles"])
	}
	w.Flush()
}

// Helper functions
func printUserTable(users []map[string]interface{}) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tREGION")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["name"], u["deliusUsername"], u["region"])
	}
	w.Flush()
}

func splitCSV(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getAPIURL() string {
	if url := os.Getenv("PLACEMENTS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func loadToken() string {
	if token := os.Getenv("PLACEMENTS_TOKEN"); token != "" {
		return token
	}
	home, _ := os.UserHomeDir()
	data, _ := os.ReadFile(home + "/.placements/token")
	return strings.TrimSpace(string(data))
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Placements CLI

Usage:
  placements <command> [options]

Commands:
  users  User operations (me, search, allocatable, roles, pdu, delete)
  beds   Bed search operations (search-ap, search-ta)
  help   Show this help message

Environment Variables:
  PLACEMENTS_API      API endpoint (default: http://localhost:8080/api)
  PLACEMENTS_TOKEN    Bearer token (falls back to ~/.placements/token)

Examples:
  placements users me
  placements users search -name smith
  placements users allocatable -crn X123456 -permission allocate_assessment
  placements beds search-ap -outcode SW1 -distance 30 -start 2026-09-01 -weeks 4
  placements beds search-ta -start 2026-09-01 -days 28
`)
}
