package synth

import (
	"reflect"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 100

	a, _, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, _, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, name := range a.Names() {
		ca, err := a.Column(name)
		if err != nil {
			t.Fatalf("Column(%q) error = %v", name, err)
		}
		cb, err := b.Column(name)
		if err != nil {
			t.Fatalf("Column(%q) error = %v", name, err)
		}
		if !reflect.DeepEqual(ca, cb) {
			t.Fatalf("column %q differs across identical seeds", name)
		}
	}

	cfg.Seed++
	c, _, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ya, err := a.Column("y")
	if err != nil {
		t.Fatalf("Column(y) error = %v", err)
	}
	yc, err := c.Column("y")
	if err != nil {
		t.Fatalf("Column(y) error = %v", err)
	}
	if reflect.DeepEqual(ya, yc) {
		t.Error("different seeds produced identical outcomes")
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 200
	cfg.Relevant = 4
	cfg.Irrelevant = 2

	d, truth, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if d.Len() != 200 {
		t.Errorf("Len() = %d, want 200", d.Len())
	}
	wantNames := []string{"y", "w", "x1", "x2", "x3", "x4", "x5", "x6"}
	if !reflect.DeepEqual(d.Names(), wantNames) {
		t.Errorf("Names() = %v, want %v", d.Names(), wantNames)
	}
	if err := d.CheckBinary("w"); err != nil {
		t.Errorf("CheckBinary(w) error = %v", err)
	}

	if want := []string{"x1", "x2", "x3", "x4"}; !reflect.DeepEqual(truth.Relevant, want) {
		t.Errorf("Relevant = %v, want %v", truth.Relevant, want)
	}
	if want := []string{"x5", "x6"}; !reflect.DeepEqual(truth.Irrelevant, want) {
		t.Errorf("Irrelevant = %v, want %v", truth.Irrelevant, want)
	}
	if truth.ATE != cfg.ATE {
		t.Errorf("Truth.ATE = %v, want %v", truth.ATE, cfg.ATE)
	}

	// Outcome weights are distinct and descending over the relevant set.
	prev := truth.OutcomeCoefs["x1"]
	for _, name := range truth.Relevant[1:] {
		cur := truth.OutcomeCoefs[name]
		if cur >= prev {
			t.Errorf("OutcomeCoefs[%s] = %v, want < %v", name, cur, prev)
		}
		prev = cur
	}
}

func TestGenerateNoConfounding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confounding = 0

	d, _, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	w, err := d.Column("w")
	if err != nil {
		t.Fatalf("Column(w) error = %v", err)
	}
	rate := 0.0
	for _, v := range w {
		rate += v
	}
	rate /= float64(len(w))
	if rate < 0.4 || rate > 0.6 {
		t.Errorf("treatment rate = %v, want near 0.5 without confounding", rate)
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "too few rows", mutate: func(c *Config) { c.N = 1 }},
		{name: "no covariates", mutate: func(c *Config) { c.Relevant, c.Irrelevant = 0, 0 }},
		{name: "negative relevant", mutate: func(c *Config) { c.Relevant = -1 }},
		{name: "negative noise", mutate: func(c *Config) { c.Noise = -0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, _, err := Generate(cfg); err == nil {
				t.Error("Generate() error = nil, want error")
			}
		})
	}
}
