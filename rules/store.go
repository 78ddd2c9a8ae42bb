package rules

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrRuleNotFound is returned when no rule has the requested ID
	ErrRuleNotFound = errors.New("rule not found")
	// ErrRuleExists is returned when adding a rule whose ID is taken
	ErrRuleExists = errors.New("rule already exists")
)

// RuleStore manages the rule catalog
type RuleStore interface {
	// Add appends a new rule to the end of the catalog
	Add(rule *Rule) error

	// Get a rule by ID
	Get(id string) (*Rule, error)

	// List returns the active catalog in catalog order
	List() ([]*Rule, error)

	// Update replaces the rule with the same ID, keeping its catalog position
	Update(rule *Rule) error

	// Delete takes a rule out of the catalog
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore with an ordered slice and an ID index.
// Thread-safe.
type InMemoryRuleStore struct {
	rules []*Rule
	index map[string]int
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a store holding catalog in the given order.
//
// A CSV catalog may repeat a rule ID; every entry is kept so that List
// reproduces the file, and Get returns the first one.
func NewInMemoryRuleStore(catalog ...*Rule) *InMemoryRuleStore {
	s := &InMemoryRuleStore{
		rules: make([]*Rule, 0, len(catalog)),
		index: make(map[string]int, len(catalog)),
	}
	for _, rule := range catalog {
		if _, exists := s.index[rule.ID]; !exists {
			s.index[rule.ID] = len(s.rules)
		}
		s.rules = append(s.rules, rule)
	}
	return s
}

// Add appends rule, rejecting empty or duplicate IDs
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[rule.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
	}

	s.index[rule.ID] = len(s.rules)
	s.rules = append(s.rules, rule)
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.index[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return s.rules[i], nil
}

// List returns a copy of the catalog
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// Update replaces the first rule carrying rule.ID
func (s *InMemoryRuleStore) Update(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[rule.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}
	s.rules[i] = rule
	return nil
}

// Delete removes the first rule carrying id. A later duplicate from the
// seed catalog, if any, becomes the one Get returns.
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	s.rules = append(s.rules[:i:i], s.rules[i+1:]...)
	s.reindex()
	return nil
}

// reindex must be called with mu held
func (s *InMemoryRuleStore) reindex() {
	clear(s.index)
	for i, rule := range s.rules {
		if _, exists := s.index[rule.ID]; !exists {
			s.index[rule.ID] = i
		}
	}
}
