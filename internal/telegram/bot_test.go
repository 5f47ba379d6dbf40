package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/auth"
	"sparky/internal/project"
	"sparky/internal/scheduler"
	"sparky/internal/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	sw := c.(tgbotapi.MessageConfig)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sw.Text)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeSender) waitFor(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range f.messages() {
			if strings.Contains(m, substr) {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no message containing %q, got %q", substr, f.messages())
}

type fakeRecorder struct{ events []storage.Event }

func (f fakeRecorder) AppendInteraction(storage.Event) error { return nil }

func (f fakeRecorder) LoadInteractionsSince(time.Time) ([]storage.Event, error) {
	return f.events, nil
}

func newTestBot(t *testing.T, allowed []int64, admin int64, rec storage.Recorder) (*Bot, *fakeSender) {
	t.Helper()
	sched := scheduler.New(zap.NewNop())
	sched.Start()
	t.Cleanup(sched.Stop)

	m := app.NewManager(app.Options{ThinkingDelay: time.Millisecond, BuildDelay: 20 * time.Millisecond, Scheduler: sched})
	t.Cleanup(m.Close)

	fs := &fakeSender{}
	b := newBot(fs, auth.New(allowed), m, rec, admin, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.runOutbox(ctx)
	return b, fs
}

func textMsg(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{From: &tgbotapi.User{ID: userID}, Chat: &tgbotapi.Chat{ID: userID}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func TestUnauthorizedUserIsRejected(t *testing.T) {
	b, fs := newTestBot(t, []int64{1}, 0, nil)
	b.handleIncomingMessage(context.Background(), textMsg(2, "hello"))

	sent := fs.messages()
	if len(sent) != 1 || !strings.Contains(sent[0], "Access denied") {
		t.Fatalf("unexpected sent: %q", sent)
	}
	if b.sessions.Count() != 0 {
		t.Fatalf("no session must be created for unauthorized users")
	}
}

func TestMessageGetsGreetingAndReply(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, nil)
	b.handleIncomingMessage(context.Background(), textMsg(42, "Build a blog platform"))

	fs.waitFor(t, "I'm Sparky")
	fs.waitFor(t, "Blog Platform")
	fs.waitFor(t, "✅ Blog Platform is ready")

	ctrl := b.sessions.Get("42")
	if ctrl == nil {
		t.Fatalf("session for chat not created")
	}
	sel, _ := ctrl.SelectedProject()
	if sel.Name != "Blog Platform" {
		t.Fatalf("selected project: %q", sel.Name)
	}
}

func TestRepliesAreNotDuplicated(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, nil)
	ctx := context.Background()
	b.handleIncomingMessage(ctx, textMsg(7, "help"))
	b.handleIncomingMessage(ctx, textMsg(7, "help"))

	ctrl := b.sessions.Get("7")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(ctrl.Messages()) < 5 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	greetings := 0
	for _, m := range fs.messages() {
		if strings.Contains(m, "I'm Sparky") {
			greetings++
		}
	}
	// the greeting once and one reply per message
	if greetings != 1 || len(fs.messages()) != 3 {
		t.Fatalf("unexpected sent: %q", fs.messages())
	}
}

func TestProjectCommands(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, nil)
	ctx := context.Background()

	b.handleIncomingMessage(ctx, textMsg(5, "/projects"))
	fs.waitFor(t, "▶ ✅ Sample E-commerce App")

	b.handleIncomingMessage(ctx, textMsg(5, "/select 2"))
	fs.waitFor(t, "Selected: Landing Page Builder")

	b.handleIncomingMessage(ctx, textMsg(5, "/select 99"))
	fs.waitFor(t, "Project 99 not found")

	b.handleIncomingMessage(ctx, textMsg(5, "/files"))
	fs.waitFor(t, "📄 index.html")

	b.handleIncomingMessage(ctx, textMsg(5, "/file index.html"))
	fs.waitFor(t, "<!DOCTYPE html>")

	b.handleIncomingMessage(ctx, textMsg(5, "/file nope.js"))
	fs.waitFor(t, "File nope.js not found")
}

func TestResetStartsOver(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, nil)
	ctx := context.Background()

	b.handleIncomingMessage(ctx, textMsg(9, "/select 2"))
	first := b.sessions.Get("9")

	b.handleIncomingMessage(ctx, textMsg(9, "/reset"))
	fs.waitFor(t, "Conversation reset")

	second := b.sessions.Get("9")
	if second == nil || second == first {
		t.Fatalf("reset must create a fresh session")
	}
	if sel, _ := second.SelectedProject(); sel.ID != "1" {
		t.Fatalf("fresh session should select the first sample, got %q", sel.ID)
	}
}

func TestAPIKeyWithoutSettings(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, nil)
	b.handleIncomingMessage(context.Background(), textMsg(3, "/apikey sk-123"))
	fs.waitFor(t, "not configured")
}

func TestReportIsAdminOnly(t *testing.T) {
	now := time.Now().UTC()
	rec := fakeRecorder{events: []storage.Event{{Timestamp: now, SessionID: "1", UserMessage: "hi", Intent: "fallback"}}}
	b, fs := newTestBot(t, nil, 100, rec)

	b.handleIncomingMessage(context.Background(), textMsg(5, "/report"))
	fs.waitFor(t, "only available to the administrator")

	b.handleIncomingMessage(context.Background(), textMsg(100, "/report"))
	fs.waitFor(t, "messages: 1")

	b.handleIncomingMessage(context.Background(), textMsg(100, "/report json"))
	fs.waitFor(t, `"total_messages": 1`)
}

func TestUsersCommand(t *testing.T) {
	b, fs := newTestBot(t, []int64{100, 5}, 100, nil)
	ctx := context.Background()

	intruder := textMsg(8, "hello")
	intruder.From.UserName = "mallory"
	b.handleIncomingMessage(ctx, intruder)
	fs.waitFor(t, "Access denied")

	b.handleIncomingMessage(ctx, textMsg(5, "/users"))
	fs.waitFor(t, "only available to the administrator")

	admin := textMsg(100, "/users")
	admin.From.UserName = "boss"
	b.handleIncomingMessage(ctx, admin)
	fs.waitFor(t, "✅ 5 (unknown)\n⛔ 8 @mallory\n✅ 100 @boss")
}

func TestFormatUsers(t *testing.T) {
	if got := formatUsers(nil, true); !strings.Contains(got, "everyone can use the bot") || !strings.HasSuffix(got, "No users yet") {
		t.Fatalf("unexpected output: %q", got)
	}
	got := formatUsers([]auth.User{{ID: 1, Username: "a", Allowed: true}}, false)
	if got != "Users:\n✅ 1 @a\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestSendDigest(t *testing.T) {
	b, fs := newTestBot(t, nil, 0, fakeRecorder{})
	if err := b.SendDigest(context.Background()); err != nil {
		t.Fatalf("digest: %v", err)
	}
	if len(fs.messages()) != 0 {
		t.Fatalf("digest without admin must be a no-op")
	}

	b.adminUserID = 100
	if err := b.SendDigest(context.Background()); err != nil {
		t.Fatalf("digest: %v", err)
	}
	fs.waitFor(t, "Sparky activity")
}

func TestFormatProjects(t *testing.T) {
	out := formatProjects([]project.Project{
		{ID: "a", Name: "One", Status: project.StatusBuilding},
		{ID: "b", Name: "Two", Status: project.StatusInProgress},
	}, "b")
	if !strings.Contains(out, "  🔨 One [building]") || !strings.Contains(out, "▶ 🚧 Two [in-progress]") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if formatProjects(nil, "") != "No projects yet" {
		t.Fatalf("empty list")
	}
}

func TestFormatTree(t *testing.T) {
	p := project.Project{Name: "Site", Files: []project.File{
		{Name: "src/app.js", Content: "abc"},
		{Name: "index.html", Content: "<p>"},
	}}
	out := formatTree(project.Tree(p))
	want := "📁 Site\n  📁 src\n    📄 app.js (3 B)\n  📄 index.html (3 B)\n"
	if out != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
}
