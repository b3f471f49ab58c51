package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendly/internal/dates"
	"attendly/internal/store"
)

// Source is one candidate location for startup data.
type Source struct {
	Slot store.Slot
	Name string
	// NormalizeTheme forces the profile theme to modern unless it is exactly retro.
	NormalizeTheme bool
	// Authoritative sources end the search once present, even when unreadable or malformed.
	Authoritative bool
}

// Sources lists startup data locations in priority order.
var Sources = []Source{
	{Slot: store.SlotData, Name: "canonical", NormalizeTheme: true, Authoritative: true},
	{Slot: store.SlotLegacyV2, Name: "legacy:" + string(store.SlotLegacyV2)},
	{Slot: store.SlotLegacyX, Name: "legacy:" + string(store.SlotLegacyX)},
}

// SourceDefaults names the outcome when no source was usable.
const SourceDefaults = "defaults"

var errNotObject = errors.New("stored value is not a JSON object")

// LoadResult describes what hydrated the store.
type LoadResult struct {
	Source   string
	Subjects int
	// Migrated is set when a legacy source was copied into the canonical slot.
	Migrated bool
}

// Loader hydrates a Store from the first usable source. It runs at most once.
type Loader struct {
	kv      store.KV
	st      *Store
	log     *zap.Logger
	sources []Source

	once   sync.Once
	result LoadResult
}

// NewLoader creates a loader reading kv and hydrating st.
func NewLoader(kv store.KV, st *Store, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{kv: kv, st: st, log: log, sources: Sources}
}

// Load hydrates the store. Later calls return the first result without reading again.
// No failure is fatal: unreadable or malformed sources are logged and skipped. Legacy
// sources are only consulted when the canonical slot holds nothing.
func (l *Loader) Load(ctx context.Context) LoadResult {
	l.once.Do(func() {
		l.result = l.load(ctx)
		l.st.metrics.LoadedFrom(l.result.Source)
		l.log.Info("attendance data loaded",
			zap.String("source", l.result.Source),
			zap.Int("subjects", l.result.Subjects),
			zap.Bool("migrated", l.result.Migrated))
	})
	return l.result
}

func (l *Loader) load(ctx context.Context) LoadResult {
	for _, src := range l.sources {
		raw, ok, err := l.kv.Get(ctx, src.Slot)
		if err != nil {
			l.log.Warn("read failed", zap.String("slot", string(src.Slot)), zap.Error(err))
			if src.Authoritative {
				break
			}
			continue
		}
		if !ok {
			continue
		}
		subjects, profile, err := l.decode(raw, src)
		if err != nil {
			l.log.Warn("failed to parse storage", zap.String("slot", string(src.Slot)), zap.Error(err))
			if src.Authoritative {
				break
			}
			continue
		}

		l.st.Hydrate(subjects, profile)
		res := LoadResult{Source: src.Name, Subjects: len(subjects)}
		if !src.Authoritative {
			if err := l.st.Flush(ctx); err != nil {
				l.log.Error("migration write failed", zap.String("from", string(src.Slot)), zap.Error(err))
			} else {
				res.Migrated = true
			}
		}
		return res
	}

	l.st.Hydrate(nil, DefaultProfile())
	return LoadResult{Source: SourceDefaults}
}

func (l *Loader) decode(raw string, src Source) ([]Subject, Profile, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, Profile{}, err
	}
	if env == nil {
		return nil, Profile{}, errNotObject
	}

	subjects, err := l.decodeSubjects(env["subjects"], src)
	if err != nil {
		return nil, Profile{}, err
	}
	profile := l.decodeProfile(env["profile"], src)
	if src.NormalizeTheme {
		profile.Theme = NormalizeTheme(profile.Theme)
	}
	return subjects, profile, nil
}

func (l *Loader) decodeSubjects(raw json.RawMessage, src Source) ([]Subject, error) {
	var items []json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	}

	out := make([]Subject, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		sub, err := l.decodeSubject(item, src)
		if err != nil {
			l.log.Warn("dropping unreadable subject",
				zap.String("slot", string(src.Slot)), zap.Int("index", i), zap.Error(err))
			continue
		}
		if sub.ID == "" || seen[sub.ID] {
			fresh := l.st.newID()
			l.log.Warn("assigning new subject id",
				zap.String("slot", string(src.Slot)), zap.String("old", sub.ID), zap.String("new", fresh))
			sub.ID = fresh
		}
		seen[sub.ID] = true
		out = append(out, sub)
	}
	return out, nil
}

// decodeSubject reads one stored subject field by field. Only a value that is not an object is an error;
// a field of the wrong type falls back to its default and bad history entries are dropped.
func (l *Loader) decodeSubject(raw json.RawMessage, src Source) (Subject, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Subject{}, err
	}
	if fields == nil {
		return Subject{}, errNotObject
	}

	sub := Subject{Target: DefaultProfile().OverallTarget, History: map[string]Status{}}
	ignore := func(field string, err error) {
		l.log.Debug("ignoring subject field",
			zap.String("slot", string(src.Slot)), zap.String("field", field), zap.Error(err))
	}
	for key, dst := range map[string]*string{"id": &sub.ID, "name": &sub.Name} {
		if v, ok := fields[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				ignore(key, err)
			}
		}
	}
	if v, ok := fields["target"]; ok {
		if n, ok := number(v); ok {
			sub.Target = n
		} else {
			ignore("target", errNotNumber)
		}
	}
	if v, ok := fields["lastUpdated"]; ok {
		if n, ok := number(v); ok && n != 0 {
			sub.LastUpdated = time.UnixMilli(int64(n))
		} else if !ok {
			ignore("lastUpdated", errNotNumber)
		}
	}

	var history map[string]json.RawMessage
	if v, ok := fields["history"]; ok {
		if err := json.Unmarshal(v, &history); err != nil {
			ignore("history", err)
		}
	}
	for date, v := range history {
		var status Status
		if json.Unmarshal(v, &status) != nil || !dates.Valid(date) || !status.Persisted() {
			l.log.Warn("dropping history entry",
				zap.String("subject", sub.ID), zap.String("date", date), zap.String("status", string(v)))
			continue
		}
		sub.History[date] = status
	}
	return sub, nil
}

var errNotNumber = errors.New("not a number")

// number accepts a JSON number or a string holding one.
func number(v json.RawMessage) (float64, bool) {
	var x any
	if err := json.Unmarshal(v, &x); err != nil {
		return 0, false
	}
	switch n := x.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// decodeProfile overlays each present field onto the defaults; a field of the wrong type keeps its default.
func (l *Loader) decodeProfile(raw json.RawMessage, src Source) Profile {
	p := DefaultProfile()
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return p
	}

	targets := map[string]any{
		"name":          &p.Name,
		"rollNumber":    &p.RollNumber,
		"institution":   &p.Institution,
		"overallTarget": &p.OverallTarget,
		"theme":         &p.Theme,
	}
	for key, dst := range targets {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			l.log.Debug("ignoring profile field",
				zap.String("slot", string(src.Slot)), zap.String("field", key), zap.Error(err))
		}
	}
	return p
}
