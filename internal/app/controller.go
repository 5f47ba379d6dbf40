// Package app owns the state of one Sparky conversation: the message log,
// the projects being "built" and the simulated timers that drive them.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparky/internal/assistant"
	"sparky/internal/chat"
	"sparky/internal/project"
	"sparky/internal/scheduler"
	"sparky/internal/settings"
	"sparky/internal/storage"
)

const (
	DefaultThinkingDelay = 1500 * time.Millisecond
	DefaultBuildDelay    = 3 * time.Second
)

type EventKind string

const (
	EventMessage        EventKind = "message"
	EventProjectCreated EventKind = "project_created"
	EventProjectUpdated EventKind = "project_updated"
	EventTyping         EventKind = "typing"
)

// Event describes a state change. Only the field matching Kind is set.
type Event struct {
	Kind    EventKind
	Message chat.Message
	Project project.Project
	Typing  bool
}

// Listener is called synchronously, possibly from a timer goroutine.
// It must not block.
type Listener func(Event)

type Options struct {
	SessionID     string
	ThinkingDelay time.Duration
	BuildDelay    time.Duration
	Classifier    *assistant.Classifier
	Scheduler     *scheduler.Scheduler
	Settings      settings.Store
	Recorder      storage.Recorder
	Logger        *zap.Logger
}

// Controller is the single owner of a conversation's state.
type Controller struct {
	id            string
	thinkingDelay time.Duration
	buildDelay    time.Duration
	classifier    *assistant.Classifier
	sched         *scheduler.Scheduler
	settings      settings.Store
	recorder      storage.Recorder
	logger        *zap.Logger

	messages *chat.Log
	projects *project.Store

	mu        sync.Mutex
	tasks     map[*scheduler.Task]struct{}
	pending   int
	apiKey    string
	listeners []Listener
	closed    bool
}

// New creates a controller with the greeting and sample projects in place
// and the API key loaded from settings. opts.Scheduler must be started.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	c := &Controller{
		id:            opts.SessionID,
		thinkingDelay: opts.ThinkingDelay,
		buildDelay:    opts.BuildDelay,
		classifier:    opts.Classifier,
		sched:         opts.Scheduler,
		settings:      opts.Settings,
		recorder:      opts.Recorder,
		logger:        opts.Logger,
		messages:      chat.NewLog(),
		projects:      project.NewStore(),
		tasks:         make(map[*scheduler.Task]struct{}),
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.classifier == nil {
		c.classifier = assistant.New(nil)
	}
	if c.recorder == nil {
		c.recorder = storage.Nop{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("session", c.id))

	if c.settings != nil {
		key, err := settings.LoadAPIKey(ctx, c.settings)
		if err != nil {
			return nil, err
		}
		c.apiKey = key
	}

	c.messages.Append(chat.NewMessage(chat.TypeAssistant, c.classifier.Catalog().Greeting))
	project.SeedSamples(c.projects)
	return c, nil
}

func (c *Controller) ID() string { return c.id }

// Subscribe registers l for all future events.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Send appends the user's message and schedules the assistant reply after
// the thinking delay. Blank input is ignored and reported as false.
// Overlapping sends are not serialized: each reply fires on its own timer.
func (c *Controller) Send(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}

	msg := chat.NewMessage(chat.TypeUser, input)
	c.messages.Append(msg)
	c.emit(Event{Kind: EventMessage, Message: msg})
	c.adjustTyping(1)

	c.logger.Info("💬 Incoming message", zap.String("content", input))
	if !c.schedule("reply", c.thinkingDelay, func() { c.reply(input) }) {
		c.adjustTyping(-1)
	}
	return true
}

func (c *Controller) reply(input string) {
	resp := c.classifier.Classify(input)

	// project side effects land before the reply so that anyone reacting
	// to the reply already sees them
	var projectID string
	if resp.Project != nil {
		projectID = c.startBuild(*resp.Project)
	}
	if resp.File != nil {
		projectID = c.addFile(*resp.File)
	}

	msg := chat.NewMessage(chat.TypeAssistant, resp.Content)
	c.messages.Append(msg)
	c.emit(Event{Kind: EventMessage, Message: msg})
	c.adjustTyping(-1)

	c.logger.Info("🤖 Canned reply", zap.String("intent", string(resp.Intent)))

	if err := c.recorder.AppendInteraction(storage.Event{
		Timestamp:         msg.Timestamp,
		SessionID:         c.id,
		UserMessage:       input,
		AssistantResponse: resp.Content,
		Intent:            string(resp.Intent),
		ProjectID:         projectID,
	}); err != nil {
		c.logger.Warn("failed to record interaction", zap.Error(err))
	}
}

func (c *Controller) startBuild(req assistant.ProjectRequest) string {
	p, err := c.projects.Create(req.Name, req.Description, project.StatusBuilding, project.StarterFiles(req.Name))
	if err != nil {
		c.logger.Error("❌ Failed to create project", zap.Error(err))
		return ""
	}
	c.emit(Event{Kind: EventProjectCreated, Project: p})
	c.logger.Info("🔨 Build started", zap.String("project", p.Name), zap.String("project_id", p.ID))

	id := p.ID
	c.schedule("build:"+id, c.buildDelay, func() {
		done, err := c.projects.SetStatus(id, project.StatusCompleted)
		if err != nil {
			c.logger.Error("❌ Failed to complete build", zap.String("project_id", id), zap.Error(err))
			return
		}
		c.emit(Event{Kind: EventProjectUpdated, Project: done})
		c.logger.Info("✅ Build completed", zap.String("project", done.Name), zap.String("project_id", id))
	})
	return id
}

func (c *Controller) addFile(req assistant.FileRequest) string {
	sel, ok := c.projects.Selected()
	if !ok {
		return ""
	}
	p, err := c.projects.AppendFile(sel.ID, project.File{Name: req.Name, Type: req.Type, Content: req.Content})
	if err != nil {
		c.logger.Error("❌ Failed to add file", zap.Error(err))
		return ""
	}
	c.emit(Event{Kind: EventProjectUpdated, Project: p})
	return p.ID
}

// schedule registers fn as a cancellable task owned by this controller.
// It reports false when the controller is already closed.
func (c *Controller) schedule(name string, delay time.Duration, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	var task *scheduler.Task
	task = c.sched.After(c.id+":"+name, delay, func() {
		c.mu.Lock()
		delete(c.tasks, task)
		c.mu.Unlock()
		fn()
	})
	c.tasks[task] = struct{}{}
	return true
}

func (c *Controller) adjustTyping(delta int) {
	c.mu.Lock()
	before := c.pending > 0
	c.pending += delta
	if c.pending < 0 {
		c.pending = 0
	}
	after := c.pending > 0
	c.mu.Unlock()
	if before != after {
		c.emit(Event{Kind: EventTyping, Typing: after})
	}
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	ls := make([]Listener, len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

// Typing reports whether at least one reply is still pending.
func (c *Controller) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

func (c *Controller) Messages() []chat.Message { return c.messages.All() }

func (c *Controller) Projects() []project.Project { return c.projects.List() }

func (c *Controller) Project(id string) (project.Project, error) { return c.projects.Get(id) }

func (c *Controller) SelectedProject() (project.Project, bool) { return c.projects.Selected() }

func (c *Controller) SelectProject(id string) error { return c.projects.Select(id) }

func (c *Controller) File(projectID, name string) (project.File, error) {
	return c.projects.File(projectID, name)
}

// CreateProject is the manual "new project" flow: no build is simulated.
func (c *Controller) CreateProject(name, description string) (project.Project, error) {
	p, err := c.projects.Create(strings.TrimSpace(name), description, project.StatusInProgress, nil)
	if err != nil {
		return project.Project{}, err
	}
	c.emit(Event{Kind: EventProjectCreated, Project: p})
	return p, nil
}

func (c *Controller) Suggestions() []string {
	return append([]string(nil), c.classifier.Catalog().Suggestions...)
}

func (c *Controller) APIKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKey
}

// SetAPIKey updates the key and persists it when a settings store is configured.
// Only this controller's cached copy changes; other live sessions keep their
// key until they are recreated. Use Manager.SetAPIKey to update all of them.
func (c *Controller) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if c.settings != nil {
		if err := settings.SaveAPIKey(ctx, c.settings, key); err != nil {
			return err
		}
	}
	c.cacheAPIKey(key)
	return nil
}

func (c *Controller) cacheAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// Close cancels every pending reply and build. Replies that already started
// still finish but schedule nothing new.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	tasks := make([]*scheduler.Task, 0, len(c.tasks))
	for t := range c.tasks {
		tasks = append(tasks, t)
	}
	c.tasks = make(map[*scheduler.Task]struct{})
	wasTyping := c.pending > 0
	c.pending = 0
	c.mu.Unlock()

	cancelled := 0
	for _, t := range tasks {
		if t.Cancel() {
			cancelled++
		}
	}
	if wasTyping {
		c.emit(Event{Kind: EventTyping, Typing: false})
	}
	c.logger.Debug("🔥 Session closed", zap.Int("cancelled_tasks", cancelled))
}
