package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"sparky/internal/storage"
)

// DailyStats содержит статистику за день
type DailyStats struct {
	Date            string                  `json:"date"`
	TotalMessages   int                     `json:"total_messages"`
	UniqueSessions  int                     `json:"unique_sessions"`
	ProjectsCreated int                     `json:"projects_created"`
	IntentCounts    map[string]int          `json:"intent_counts"`
	SessionStats    map[string]SessionStats `json:"session_stats"`
}

// SessionStats содержит статистику по сессии
type SessionStats struct {
	SessionID       string `json:"session_id"`
	Messages        int    `json:"messages"`
	ProjectsCreated int    `json:"projects_created"`
}

const intentCreateProject = "create_project"

// AnalyzeDailyLogs анализирует логи за указанную дату
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	dayStart := startOfDay(targetDate)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:         dayStart.Format("2006-01-02"),
		IntentCounts: make(map[string]int),
		SessionStats: make(map[string]SessionStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(dayStart) || !event.Timestamp.Before(dayEnd) {
			continue
		}
		// Пустые сообщения не учитываем
		if strings.TrimSpace(event.UserMessage) == "" {
			continue
		}

		stats.TotalMessages++
		stats.IntentCounts[event.Intent]++

		ss, exists := stats.SessionStats[event.SessionID]
		if !exists {
			ss = SessionStats{SessionID: event.SessionID}
		}
		ss.Messages++
		if event.Intent == intentCreateProject {
			stats.ProjectsCreated++
			ss.ProjectsCreated++
		}
		stats.SessionStats[event.SessionID] = ss
	}

	stats.UniqueSessions = len(stats.SessionStats)
	return stats
}

// startOfDay нормализует дату до начала дня
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDailyReport создает текстовый отчет
func (ds *DailyStats) FormatDailyReport() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sparky activity for %s:\n", ds.Date)
	fmt.Fprintf(&sb, "- messages: %d\n", ds.TotalMessages)
	fmt.Fprintf(&sb, "- sessions: %d\n", ds.UniqueSessions)
	fmt.Fprintf(&sb, "- projects created: %d\n", ds.ProjectsCreated)

	if len(ds.IntentCounts) > 0 {
		intents := make([]string, 0, len(ds.IntentCounts))
		for intent := range ds.IntentCounts {
			intents = append(intents, intent)
		}
		sort.Strings(intents)
		sb.WriteString("Intents:\n")
		for _, intent := range intents {
			fmt.Fprintf(&sb, "- %s: %d\n", intent, ds.IntentCounts[intent])
		}
	}
	return sb.String()
}

// ToJSON сериализует статистику в JSON для детального анализа
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DailyReport загружает события начиная с полуночи day и считает статистику за день
func DailyReport(rec storage.Recorder, day time.Time) (*DailyStats, error) {
	events, err := rec.LoadInteractionsSince(startOfDay(day))
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return AnalyzeDailyLogs(events, day), nil
}
