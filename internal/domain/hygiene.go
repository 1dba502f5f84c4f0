package domain

import "log/slog"

// Namespace is the view of the runtime namespace that hygiene needs.
type Namespace interface {
	Definitions() []string
	Undefine(name string) bool
}

// RecordDefinitions returns the names in after that are not in before, in
// after's order. It has no side effects.
func RecordDefinitions(before, after []string) []string {
	known := make(map[string]struct{}, len(before))
	for _, name := range before {
		known[name] = struct{}{}
	}

	var added []string

	for _, name := range after {
		if _, ok := known[name]; !ok {
			added = append(added, name)
		}
	}

	return added
}

// Hygiene tracks the names introduced by loading the target units so they
// can be removed before a reload.
type Hygiene struct {
	ns       Namespace
	recorded []string
}

// NewHygiene returns a hygiene tracker over ns.
func NewHygiene(ns Namespace) *Hygiene {
	return &Hygiene{ns: ns}
}

// Snapshot returns the names currently defined.
func (h *Hygiene) Snapshot() []string {
	return h.ns.Definitions()
}

// Record stores the names defined since before and returns them.
func (h *Hygiene) Record(before []string) []string {
	h.recorded = RecordDefinitions(before, h.ns.Definitions())
	return h.Recorded()
}

// Recorded returns a copy of the recorded names.
func (h *Hygiene) Recorded() []string {
	recorded := make([]string, len(h.recorded))
	copy(recorded, h.recorded)

	return recorded
}

// Purge removes names from the namespace, ignoring the ones already gone,
// and returns how many were removed.
func (h *Hygiene) Purge(names []string) int {
	removed := 0

	for _, name := range names {
		if h.ns.Undefine(name) {
			removed++
		}
	}

	slog.Debug("purged definitions", "requested", len(names), "removed", removed)

	return removed
}

// PurgeRecorded removes every recorded name.
func (h *Hygiene) PurgeRecorded() int {
	return h.Purge(h.recorded)
}
