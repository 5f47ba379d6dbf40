package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sparky/internal/analytics"
	"sparky/internal/app"
	"sparky/internal/auth"
	"sparky/internal/project"
	"sparky/internal/settings"
)

const helpText = `Commands:
/projects - list projects
/select <id> - select a project
/files - files of the selected project
/file <name> - show a file
/apikey <key> - save the API key (empty clears it)
/reset - start over

Admin:
/report [json] - today's activity
/users - known users and the allowlist`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.sendMessage(chatID, helpText)
	case "reset":
		b.handleReset(ctx, chatID)
	case "apikey":
		b.handleAPIKey(ctx, chatID, args)
	case "report":
		b.handleReportCommand(msg, args)
	case "users":
		b.handleUsersCommand(msg)
	default:
		ctrl, err := b.session(ctx, chatID)
		if err != nil {
			b.logger.Error("❌ Failed to open session", zap.Int64("chat_id", chatID), zap.Error(err))
			b.sendMessage(chatID, "Sorry, something went wrong.")
			return
		}
		b.handleProjectCommand(ctrl, chatID, msg.Command(), args)
	}
}

func (b *Bot) handleProjectCommand(ctrl *app.Controller, chatID int64, cmd, args string) {
	switch cmd {
	case "projects":
		sel, _ := ctrl.SelectedProject()
		b.sendMessage(chatID, formatProjects(ctrl.Projects(), sel.ID))
	case "select":
		if args == "" {
			b.sendMessage(chatID, "Usage: /select <id>")
			return
		}
		if err := ctrl.SelectProject(args); err != nil {
			b.sendMessage(chatID, "Project "+args+" not found")
			return
		}
		sel, _ := ctrl.SelectedProject()
		b.sendMessage(chatID, "Selected: "+sel.Name)
	case "files":
		sel, ok := ctrl.SelectedProject()
		if !ok {
			b.sendMessage(chatID, "No project selected")
			return
		}
		b.sendMessage(chatID, formatTree(project.Tree(sel)))
	case "file":
		if args == "" {
			b.sendMessage(chatID, "Usage: /file <name>")
			return
		}
		sel, ok := ctrl.SelectedProject()
		if !ok {
			b.sendMessage(chatID, "No project selected")
			return
		}
		f, err := ctrl.File(sel.ID, args)
		if err != nil {
			b.sendMessage(chatID, "File "+args+" not found in "+sel.Name)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("📄 %s (%s)\n\n%s", f.Name, f.Type, f.Content))
	default:
		b.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	id := strconv.FormatInt(chatID, 10)
	fresh := b.sessions.Get(id) == nil
	ctrl, err := b.session(ctx, chatID)
	if err != nil {
		b.sendMessage(chatID, "Sorry, something went wrong.")
		return
	}
	if !fresh {
		if greeting, ok := firstMessage(ctrl); ok {
			b.sendMessage(chatID, greeting)
		}
	}
	var sb strings.Builder
	sb.WriteString("Try one of these:\n")
	for _, s := range ctrl.Suggestions() {
		sb.WriteString("• " + s + "\n")
	}
	sb.WriteString("\n" + helpText)
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	id := strconv.FormatInt(chatID, 10)
	if err := b.sessions.End(id); err == nil {
		b.logger.Info("🔄 Session reset", zap.Int64("chat_id", chatID))
	}
	b.forget(chatID)
	b.sendMessage(chatID, "🔄 Conversation reset")
	if _, err := b.session(ctx, chatID); err != nil {
		b.logger.Error("❌ Failed to open session", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleAPIKey(ctx context.Context, chatID int64, key string) {
	if err := b.sessions.SetAPIKey(ctx, key); err != nil {
		if errors.Is(err, app.ErrNoSettings) {
			b.sendMessage(chatID, "Settings storage is not configured")
			return
		}
		b.logger.Error("❌ Failed to save API key", zap.Error(err))
		b.sendMessage(chatID, "Failed to save API key")
		return
	}
	if key == "" {
		b.sendMessage(chatID, "🔑 API key cleared")
		return
	}
	b.sendMessage(chatID, "🔑 API key saved: "+settings.Mask(key))
}

func (b *Bot) isAdmin(msg *tgbotapi.Message) bool {
	return b.adminUserID != 0 && msg.From.ID == b.adminUserID
}

// handleReportCommand обрабатывает команду /report (только для админа).
// "/report json" отдает полную статистику в JSON
func (b *Bot) handleReportCommand(msg *tgbotapi.Message, args string) {
	if !b.isAdmin(msg) {
		b.sendMessage(msg.Chat.ID, "❌ This command is only available to the administrator.")
		return
	}
	stats, err := analytics.DailyReport(b.recorder, time.Now().UTC())
	if err != nil {
		b.logger.Error("❌ Report generation failed", zap.Error(err))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Failed to build the report: %v", err))
		return
	}
	if args != "json" {
		b.sendMessage(msg.Chat.ID, "📊 "+stats.FormatDailyReport())
		return
	}
	out, err := stats.ToJSON()
	if err != nil {
		b.logger.Error("❌ Report encoding failed", zap.Error(err))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Failed to build the report: %v", err))
		return
	}
	b.sendMessage(msg.Chat.ID, out)
}

// handleUsersCommand показывает админу allowlist и всех, кто писал боту
func (b *Bot) handleUsersCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		b.sendMessage(msg.Chat.ID, "❌ This command is only available to the administrator.")
		return
	}
	b.sendMessage(msg.Chat.ID, formatUsers(b.authSvc.List(), b.authSvc.Open()))
}

// SendDigest отправляет админу отчет за текущий день; вызывается планировщиком
func (b *Bot) SendDigest(_ context.Context) error {
	if b.adminUserID == 0 {
		return nil
	}
	return b.sendDailyReport(b.adminUserID, time.Now().UTC())
}

func (b *Bot) sendDailyReport(chatID int64, day time.Time) error {
	stats, err := analytics.DailyReport(b.recorder, day)
	if err != nil {
		return err
	}
	b.sendMessage(chatID, "📊 "+stats.FormatDailyReport())
	return nil
}

func formatUsers(users []auth.User, open bool) string {
	var sb strings.Builder
	if open {
		sb.WriteString("Allowlist is empty: everyone can use the bot.\n")
	}
	if len(users) == 0 {
		sb.WriteString("No users yet")
		return sb.String()
	}
	sb.WriteString("Users:\n")
	for _, u := range users {
		name := "(unknown)"
		if u.Username != "" {
			name = "@" + u.Username
		}
		access := "✅"
		if !u.Allowed {
			access = "⛔"
		}
		fmt.Fprintf(&sb, "%s %d %s\n", access, u.ID, name)
	}
	return sb.String()
}

func statusIcon(s project.Status) string {
	switch s {
	case project.StatusCompleted:
		return "✅"
	case project.StatusBuilding:
		return "🔨"
	default:
		return "🚧"
	}
}

func formatProjects(projects []project.Project, selectedID string) string {
	if len(projects) == 0 {
		return "No projects yet"
	}
	var sb strings.Builder
	sb.WriteString("Projects:\n")
	for _, p := range projects {
		marker := "  "
		if p.ID == selectedID {
			marker = "▶ "
		}
		fmt.Fprintf(&sb, "%s%s %s [%s] (id %s, %d files)\n", marker, statusIcon(p.Status), p.Name, p.Status, p.ID, len(p.Files))
	}
	return sb.String()
}

func formatTree(root *project.FileNode) string {
	var sb strings.Builder
	sb.WriteString("📁 " + root.Name + "\n")
	writeNodes(&sb, root.Children, "  ")
	if len(root.Children) == 0 {
		sb.WriteString("  (empty)\n")
	}
	return sb.String()
}

func writeNodes(sb *strings.Builder, nodes []*project.FileNode, indent string) {
	for _, n := range nodes {
		if n.Type == "directory" {
			sb.WriteString(indent + "📁 " + n.Name + "\n")
			writeNodes(sb, n.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(sb, "%s📄 %s (%d B)\n", indent, n.Name, n.Size)
	}
}
