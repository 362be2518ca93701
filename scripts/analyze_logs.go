package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors          int
	TopupsCreated        int
	ProofsAttached       int
	PaymentsConfirmed    int
	Approvals            int
	Rejections           int
	Expired              int
	UsageCharges         int
	Adjustments          int
	InsufficientBalance  int
	NotificationFailures int
	ReconcileFailures    int
	UserActivities       map[string]int
	ErrorPatterns        map[string]int
}

var (
	userIDRegex  = regexp.MustCompile(`User ID: (\d+)`)
	expiredRegex = regexp.MustCompile(`Expired (\d+) stale top-up requests`)
)

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the daily log files")
	date := flag.String("date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	stats := &LogStats{
		UserActivities: make(map[string]int),
		ErrorPatterns:  make(map[string]int),
	}

	analyzeErrorLogs(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *date)), stats)
	analyzeInfoLogs(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *date)), stats)

	printReport(*date, stats)
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		stats.TotalErrors++

		switch {
		case strings.Contains(line, "insufficient wallet balance"):
			stats.InsufficientBalance++
			extractUserActivity(line, stats)
		case strings.Contains(line, "Notification delivery failed"):
			stats.NotificationFailures++
		case strings.Contains(line, "failed reconciliation"):
			stats.ReconcileFailures++
		}

		extractErrorPattern(line, stats)
	}
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, "Top-up request created"):
			stats.TopupsCreated++
			extractUserActivity(line, stats)
		case strings.Contains(line, "Proof attached"):
			stats.ProofsAttached++
		case strings.Contains(line, "Payment confirmed"):
			stats.PaymentsConfirmed++
		case strings.Contains(line, "Top-up approved"):
			stats.Approvals++
		case strings.Contains(line, "Top-up rejected"):
			stats.Rejections++
		case strings.Contains(line, "Usage charged"):
			stats.UsageCharges++
			extractUserActivity(line, stats)
		case strings.Contains(line, "Wallet adjusted"):
			stats.Adjustments++
		default:
			if m := expiredRegex.FindStringSubmatch(line); m != nil {
				var n int
				fmt.Sscanf(m[1], "%d", &n)
				stats.Expired += n
			}
		}
	}
}

func extractUserActivity(line string, stats *LogStats) {
	if m := userIDRegex.FindStringSubmatch(line); m != nil {
		stats.UserActivities[m[1]]++
	}
}

func extractErrorPattern(line string, stats *LogStats) {
	// Drop the timestamp and level, keep the message up to the first detail.
	fields := strings.SplitN(line, "\t", 3)
	msg := fields[len(fields)-1]
	if i := strings.Index(msg, " - "); i > 0 {
		msg = msg[:i]
	} else if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	stats.ErrorPatterns[strings.TrimSpace(msg)]++
}

func printReport(date string, stats *LogStats) {
	fmt.Println("\n=== Wallet Log Analysis Report ===")
	fmt.Println("Day:", date)
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Top-up Flow:")
	fmt.Printf("   Requests Created: %d\n", stats.TopupsCreated)
	fmt.Printf("   Proofs Attached: %d\n", stats.ProofsAttached)
	fmt.Printf("   Automatic Payments Confirmed: %d\n", stats.PaymentsConfirmed)
	fmt.Printf("   Approved: %d\n", stats.Approvals)
	fmt.Printf("   Rejected: %d\n", stats.Rejections)
	fmt.Printf("   Expired: %d\n", stats.Expired)

	fmt.Println("\n2. Wallet Activity:")
	fmt.Printf("   Usage Charges: %d\n", stats.UsageCharges)
	fmt.Printf("   Manual Adjustments: %d\n", stats.Adjustments)
	fmt.Printf("   Insufficient Balance Refusals: %d\n", stats.InsufficientBalance)

	fmt.Println("\n3. Health:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)
	fmt.Printf("   Notification Failures: %d\n", stats.NotificationFailures)
	fmt.Printf("   Reconciliation Failures: %d\n", stats.ReconcileFailures)

	fmt.Println("\n4. Most Active Users:")
	printTop(stats.UserActivities, 5, "   user %s: %d events\n")

	fmt.Println("\n5. Most Common Errors:")
	printTop(stats.ErrorPatterns, 5, "   %s: %d occurrences\n")
}

func printTop(counts map[string]int, limit int, format string) {
	type entry struct {
		key   string
		count int
	}

	var list []entry
	for k, n := range counts {
		list = append(list, entry{k, n})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].count == list[j].count {
			return list[i].key < list[j].key
		}
		return list[i].count > list[j].count
	})

	for i, e := range list {
		if i >= limit {
			break
		}
		fmt.Printf(format, e.key, e.count)
	}
}
