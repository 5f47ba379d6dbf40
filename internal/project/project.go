package project

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusBuilding   Status = "building"
	StatusCompleted  Status = "completed"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrEmptyName = errors.New("project name is required")
)

// File is a simulated project file. Type is a loose tag (javascript, html, ...)
// and is never checked against Content.
type File struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Files       []File    `json:"files"`
}

func (p Project) clone() Project {
	out := p
	out.Files = make([]File, len(p.Files))
	copy(out.Files, p.Files)
	return out
}

// Store keeps projects newest first and tracks the selected one.
// All getters return copies.
type Store struct {
	mu       sync.RWMutex
	projects []*Project
	selected string
}

func NewStore() *Store {
	return &Store{}
}

// Create prepends a new project and selects it.
func (s *Store) Create(name, description string, status Status, files []File) (Project, error) {
	if strings.TrimSpace(name) == "" {
		return Project{}, ErrEmptyName
	}
	p := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		Files:       append([]File(nil), files...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append([]*Project{p}, s.projects...)
	s.selected = p.ID
	return p.clone(), nil
}

// Add appends an existing project at the end of the list without selecting it.
func (s *Store) Add(p Project) Project {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := p.clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, &cp)
	return cp.clone()
}

func (s *Store) Get(id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findUnlocked(id)
	if p == nil {
		return Project{}, ErrNotFound
	}
	return p.clone(), nil
}

func (s *Store) List() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.clone())
	}
	return out
}

func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUnlocked(id) == nil {
		return ErrNotFound
	}
	s.selected = id
	return nil
}

func (s *Store) Selected() (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findUnlocked(s.selected)
	if p == nil {
		return Project{}, false
	}
	return p.clone(), true
}

func (s *Store) SetStatus(id string, status Status) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findUnlocked(id)
	if p == nil {
		return Project{}, ErrNotFound
	}
	p.Status = status
	return p.clone(), nil
}

func (s *Store) AppendFile(id string, f File) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findUnlocked(id)
	if p == nil {
		return Project{}, ErrNotFound
	}
	p.Files = append(p.Files, f)
	return p.clone(), nil
}

// File returns the first file with the given name.
func (s *Store) File(id, name string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findUnlocked(id)
	if p == nil {
		return File{}, ErrNotFound
	}
	for _, f := range p.Files {
		if f.Name == name {
			return f, nil
		}
	}
	return File{}, ErrNotFound
}

func (s *Store) findUnlocked(id string) *Project {
	if id == "" {
		return nil
	}
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}
