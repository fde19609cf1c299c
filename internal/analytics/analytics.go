// Package analytics summarizes the audit log into daily triage reports.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"arogya/internal/storage"
	"arogya/internal/wellness"
)

// DailyStats aggregates one calendar day of audit events.
type DailyStats struct {
	Date          string                    `json:"date" yaml:"date"`
	Turns         int                       `json:"turns" yaml:"turns"`
	Quizzes       int                       `json:"quizzes" yaml:"quizzes"`
	UniqueUsers   int                       `json:"unique_users" yaml:"unique_users"`
	BySeverity    map[wellness.Severity]int `json:"by_severity" yaml:"by_severity"`
	NetScoreDelta int                       `json:"net_score_delta" yaml:"net_score_delta"`
	TotalTokens   int                       `json:"total_tokens" yaml:"total_tokens"`
	UserStats     map[string]UserStats      `json:"user_stats" yaml:"user_stats"`
}

type UserStats struct {
	Username   string `json:"username" yaml:"username"`
	Turns      int    `json:"turns" yaml:"turns"`
	Quizzes    int    `json:"quizzes" yaml:"quizzes"`
	Serious    int    `json:"serious" yaml:"serious"`
	ScoreDelta int    `json:"score_delta" yaml:"score_delta"`
	LastScore  int    `json:"last_score" yaml:"last_score"`
}

// AnalyzeDay aggregates events that fall on targetDate in its location.
// Events must be in chronological order for LastScore to be meaningful.
func AnalyzeDay(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		BySeverity: make(map[wellness.Severity]int),
		UserStats:  make(map[string]UserStats),
	}

	for _, ev := range events {
		if ev.Timestamp.Before(startOfDay) || !ev.Timestamp.Before(endOfDay) {
			continue
		}
		us, ok := stats.UserStats[ev.Username]
		if !ok {
			us = UserStats{Username: ev.Username}
		}
		switch ev.Kind {
		case storage.KindTurn:
			stats.Turns++
			us.Turns++
			sev := wellness.Severity(ev.Severity)
			stats.BySeverity[sev]++
			if sev == wellness.SeveritySerious {
				us.Serious++
			}
			stats.TotalTokens += ev.TotalTokens
		case storage.KindQuiz:
			stats.Quizzes++
			us.Quizzes++
		default:
			continue
		}
		stats.NetScoreDelta += ev.Delta()
		us.ScoreDelta += ev.Delta()
		us.LastScore = ev.ScoreAfter
		stats.UserStats[ev.Username] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// Usernames returns the users seen that day, sorted.
func (ds *DailyStats) Usernames() []string {
	names := make([]string, 0, len(ds.UserStats))
	for name := range ds.UserStats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateReportSummary renders a plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Arogya triage report for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Conversation turns: %d\n", ds.Turns)
	fmt.Fprintf(&b, "Quiz submissions: %d\n", ds.Quizzes)
	fmt.Fprintf(&b, "Active users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "Net score change: %+d\n", ds.NetScoreDelta)
	if ds.TotalTokens > 0 {
		fmt.Fprintf(&b, "Model tokens: %d\n", ds.TotalTokens)
	}

	if ds.Turns > 0 {
		b.WriteString("\nSeverity breakdown:\n")
		for _, sev := range []wellness.Severity{wellness.SeverityNormal, wellness.SeverityMild, wellness.SeveritySerious} {
			fmt.Fprintf(&b, "- %s %s: %d\n", sev.Marker(), sev, ds.BySeverity[sev])
		}
	}

	if len(ds.UserStats) > 0 {
		b.WriteString("\nUsers:\n")
		for _, name := range ds.Usernames() {
			us := ds.UserStats[name]
			fmt.Fprintf(&b, "- %s: %d turns, %d quizzes, score %d (%+d)", name, us.Turns, us.Quizzes, us.LastScore, us.ScoreDelta)
			if us.Serious > 0 {
				fmt.Fprintf(&b, ", %d serious", us.Serious)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
