// Package directory holds the registered subjects and inventory resources
// the decision engine resolves attributes against. It performs no
// authorization logic itself; guarded mutations live in the API layer.
package directory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/plumline/gatekeeper/internal/apperr"
	"github.com/plumline/gatekeeper/internal/authz"
)

// Directory is an in-memory registry of subjects and resources.
type Directory struct {
	mu          sync.RWMutex
	subjects    map[string]authz.Subject
	resources   map[string]authz.Resource
	departments map[authz.Department]struct{}
	now         func() time.Time
	logger      zerolog.Logger
}

// New creates a directory accepting the given department set. now may be nil
// to use time.Now.
func New(departments []authz.Department, now func() time.Time, logger zerolog.Logger) *Directory {
	if now == nil {
		now = time.Now
	}
	set := make(map[authz.Department]struct{}, len(departments))
	for _, d := range departments {
		set[d] = struct{}{}
	}
	return &Directory{
		subjects:    make(map[string]authz.Subject),
		resources:   make(map[string]authz.Resource),
		departments: set,
		now:         now,
		logger:      logger.With().Str("component", "directory").Logger(),
	}
}

// PutSubject registers or replaces a subject. The department must belong to
// the configured set.
func (d *Directory) PutSubject(s authz.Subject) error {
	if strings.TrimSpace(s.ID) == "" {
		return apperr.EmptySubject()
	}
	if !d.validDepartment(s.Department) {
		return apperr.InvalidDepartment(string(s.Department))
	}

	d.mu.Lock()
	d.subjects[s.ID] = s
	d.mu.Unlock()

	d.logger.Debug().Str("subject_id", s.ID).Str("department", string(s.Department)).Msg("subject registered")
	return nil
}

// PutResource registers or replaces a resource.
func (d *Directory) PutResource(r authz.Resource) error {
	if !d.validDepartment(r.Department) {
		return apperr.InvalidDepartment(string(r.Department))
	}
	if !r.Sensitivity.Valid() {
		return apperr.InvalidSensitivity(string(r.Sensitivity))
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = d.now()
	}

	d.mu.Lock()
	d.resources[r.ID] = r
	d.mu.Unlock()

	d.logger.Debug().Str("resource_id", r.ID).Str("department", string(r.Department)).Msg("resource registered")
	return nil
}

// Subject looks up a registered subject.
func (d *Directory) Subject(id string) (authz.Subject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.subjects[id]
	if !ok {
		return authz.Subject{}, apperr.NotFound("subject", id)
	}
	return s, nil
}

// Resource looks up a registered resource.
func (d *Directory) Resource(id string) (authz.Resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.resources[id]
	if !ok {
		return authz.Resource{}, apperr.NotFound("resource", id)
	}
	return r, nil
}

// ListResources returns resources, optionally filtered by department,
// sorted by ID for stable output.
func (d *Directory) ListResources(department authz.Department) []authz.Resource {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]authz.Resource, 0, len(d.resources))
	for _, r := range d.resources {
		if department != "" && r.Department != department {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// RenameResource updates a resource's name. Blank names are rejected.
func (d *Directory) RenameResource(id, name string) (authz.Resource, error) {
	if strings.TrimSpace(name) == "" {
		return authz.Resource{}, apperr.BlankField("resource name")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.resources[id]
	if !ok {
		return authz.Resource{}, apperr.NotFound("resource", id)
	}
	r.Name = name
	r.LastUpdated = d.now()
	d.resources[id] = r
	return r, nil
}

// DeleteResource removes a resource.
func (d *Directory) DeleteResource(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.resources[id]; !ok {
		return apperr.NotFound("resource", id)
	}
	delete(d.resources, id)
	return nil
}

func (d *Directory) validDepartment(dept authz.Department) bool {
	_, ok := d.departments[dept]
	return ok
}

// Resolver normalizes subject and resource attributes for the decision
// point. Strictly data lookup, no authorization logic.
type Resolver struct {
	dir *Directory
}

// NewResolver creates a resolver over the directory.
func NewResolver(dir *Directory) *Resolver {
	return &Resolver{dir: dir}
}

// AttributeSet is the normalized pair of subject and resource attributes a
// decision is evaluated over.
type AttributeSet struct {
	Subject  authz.Subject
	Resource authz.Resource
}

// Resolve looks up both parties. Pure function of the directory contents;
// the only failure mode is an unknown subject or resource.
func (r *Resolver) Resolve(subjectID, resourceID string) (AttributeSet, error) {
	s, err := r.dir.Subject(subjectID)
	if err != nil {
		return AttributeSet{}, err
	}
	res, err := r.dir.Resource(resourceID)
	if err != nil {
		return AttributeSet{}, err
	}
	return AttributeSet{Subject: s, Resource: res}, nil
}
