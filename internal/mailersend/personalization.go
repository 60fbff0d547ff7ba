package mailersend

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Personalization holds one recipient's template data. Keys the template
// does not reference are ignored by the provider.
type Personalization struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data"`
}

// NewPersonalization returns an empty entry for email.
func NewPersonalization(email string) Personalization {
	return Personalization{Email: email, Data: map[string]string{}}
}

// Get returns the value stored for key.
func (p Personalization) Get(key string) (string, bool) {
	v, ok := p.Data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (p *Personalization) Set(key, value string) {
	if p.Data == nil {
		p.Data = map[string]string{}
	}
	p.Data[key] = value
}

// Pair is one key/value of a Personalization.
type Pair struct {
	Key   string
	Value string
}

// Pairs returns all key/value pairs sorted by key.
func (p Personalization) Pairs() []Pair {
	keys := make([]string, 0, len(p.Data))
	for k := range p.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Key: k, Value: p.Data[k]}
	}
	return pairs
}

// MarshalJSON writes {"email": ..., "data": {...}} with data in Pairs
// order. Empty data is written as {}, never null.
func (p Personalization) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	email, err := json.Marshal(p.Email)
	if err != nil {
		return nil, err
	}
	b.WriteString(`{"email":`)
	b.Write(email)
	b.WriteString(`,"data":{`)
	for i, pair := range p.Pairs() {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteString("}}")
	return b.Bytes(), nil
}

// Substitution is a single legacy {$var} replacement.
type Substitution struct {
	Var   string `json:"var"`
	Value string `json:"value"`
}

// Variable groups a recipient's legacy substitutions.
type Variable struct {
	Email         string         `json:"email"`
	Substitutions []Substitution `json:"substitutions"`
}

// NewVariable returns an entry for email with no substitutions.
func NewVariable(email string) Variable {
	return Variable{Email: email, Substitutions: []Substitution{}}
}

// Set adds or replaces the substitution for name.
func (v *Variable) Set(name, value string) {
	for i := range v.Substitutions {
		if v.Substitutions[i].Var == name {
			v.Substitutions[i].Value = value
			return
		}
	}
	v.Substitutions = append(v.Substitutions, Substitution{Var: name, Value: value})
}

// Value returns the substitution for name.
func (v Variable) Value(name string) (string, bool) {
	for _, s := range v.Substitutions {
		if s.Var == name {
			return s.Value, true
		}
	}
	return "", false
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mergePersonalization collapses entries sharing an address (later values
// win per key), then orders them so each address in recipients has exactly
// one entry in recipient order. Entries for other addresses follow in their
// original order. shared fills keys a recipient has not set.
func mergePersonalization(entries []Personalization, recipients []Recipient, shared map[string]string) []Personalization {
	merged := map[string]*Personalization{}
	var order []string

	get := func(email string) *Personalization {
		key := emailKey(email)
		if p, ok := merged[key]; ok {
			return p
		}
		p := NewPersonalization(email)
		merged[key] = &p
		order = append(order, key)
		return &p
	}

	for _, e := range entries {
		p := get(e.Email)
		for k, v := range e.Data {
			p.Data[k] = v
		}
	}

	out := make([]Personalization, 0, len(recipients)+len(order))
	seen := map[string]bool{}
	for _, r := range recipients {
		key := emailKey(r.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		p := get(r.Email)
		for k, v := range shared {
			if _, ok := p.Data[k]; !ok {
				p.Data[k] = v
			}
		}
		out = append(out, *p)
	}
	for _, key := range order {
		if !seen[key] {
			out = append(out, *merged[key])
		}
	}
	return out
}

// mergeVariables applies the same rules as mergePersonalization to legacy
// substitutions.
func mergeVariables(entries []Variable, recipients []Recipient, shared []Substitution) []Variable {
	merged := map[string]*Variable{}
	var order []string

	get := func(email string) *Variable {
		key := emailKey(email)
		if v, ok := merged[key]; ok {
			return v
		}
		v := NewVariable(email)
		merged[key] = &v
		order = append(order, key)
		return &v
	}

	for _, e := range entries {
		v := get(e.Email)
		for _, s := range e.Substitutions {
			v.Set(s.Var, s.Value)
		}
	}

	out := make([]Variable, 0, len(recipients)+len(order))
	seen := map[string]bool{}
	for _, r := range recipients {
		key := emailKey(r.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		v := get(r.Email)
		for _, s := range shared {
			if _, ok := v.Value(s.Var); !ok {
				v.Set(s.Var, s.Value)
			}
		}
		out = append(out, *v)
	}
	for _, key := range order {
		if !seen[key] {
			out = append(out, *merged[key])
		}
	}
	return out
}
