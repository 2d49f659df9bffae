package adapters

import (
	"errors"
	"testing"

	"github.com/ppiankov/materialsio/internal/model"
)

type funcAdapter func(model.Record) (model.Record, error)

func (f funcAdapter) Describe() string { return "test adapter" }

func (f funcAdapter) Transform(rec model.Record) (model.Record, error) { return f(rec) }

func TestApply(t *testing.T) {
	in := model.Record{"a": 1}

	tests := []struct {
		name    string
		adapter Adapter
		wantErr error
	}{
		{
			name:    "pass through",
			adapter: NewNoop(),
		},
		{
			name:    "explicit veto",
			adapter: funcAdapter(func(model.Record) (model.Record, error) { return nil, Veto("not wanted") }),
			wantErr: model.ErrTransformVetoed,
		},
		{
			name:    "nil record is a veto",
			adapter: funcAdapter(func(model.Record) (model.Record, error) { return nil, nil }),
			wantErr: model.ErrTransformVetoed,
		},
		{
			name:    "failure is a rejection",
			adapter: funcAdapter(func(model.Record) (model.Record, error) { return nil, errors.New("boom") }),
			wantErr: model.ErrTransformRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(tt.adapter, in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if out["a"] != 1 {
					t.Errorf("expected record unchanged, got %v", out)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == model.ErrTransformRejected && errors.Is(err, model.ErrTransformVetoed) {
				t.Error("rejection must not look like a veto")
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	rec := model.Record{
		"code": "vasp",
		"settings": map[string]any{
			"ENCUT": "520",
			"nested": map[string]any{"x": 1},
		},
		"files": []any{"INCAR", "OUTCAR"},
	}

	out, err := NewFlatten().Transform(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"code":              "vasp",
		"settings.ENCUT":    "520",
		"settings.nested.x": 1,
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("expected %s=%v, got %v", k, v, out[k])
		}
	}
	if files, ok := out["files"].([]any); !ok || len(files) != 2 {
		t.Errorf("expected sequences kept, got %v", out["files"])
	}
	if _, ok := out["settings"]; ok {
		t.Error("expected nested key to be flattened away")
	}
}

func TestDFT_Summary(t *testing.T) {
	rec := model.Record{
		"code":        "vasp",
		"energy":      -10.84,
		"system":      "AlNi B2",
		"ionic_steps": float64(2),
		"settings":    map[string]any{"ENCUT": "520", "ISMEAR": "1"},
	}

	out, err := Apply(NewDFT(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["energy_ev"] != -10.84 || out["cutoff"] != 520.0 || out["ionic_steps"] != 2 {
		t.Errorf("unexpected summary: %v", out)
	}
}

func TestDFT_VetoesWithoutEnergy(t *testing.T) {
	_, err := Apply(NewDFT(), model.Record{"code": "pwscf"})
	if !errors.Is(err, model.ErrTransformVetoed) {
		t.Errorf("expected veto, got %v", err)
	}
}

func TestDFT_RejectsForeignRecords(t *testing.T) {
	_, err := Apply(NewDFT(), model.Record{"title": "page"})
	if !errors.Is(err, model.ErrTransformRejected) {
		t.Errorf("expected rejection, got %v", err)
	}
}
