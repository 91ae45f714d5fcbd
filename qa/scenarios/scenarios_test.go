package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestPolicyDefApply(t *testing.T) {
	v := 33.0
	p := PolicyDef{MinCharge: &v}.Apply(dispatch.DefaultPolicy())
	want := dispatch.DefaultPolicy()
	want.MinChargePercent = 33
	if p != want {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestSlotDefToModel(t *testing.T) {
	s := SlotDef{ID: 4, StationID: 2, Charge: 10, Health: 90, Inactive: true}.ToModel()
	if s.Status != model.SlotInactive || s.ChargePercent != 10 || s.HealthPercent != 90 {
		t.Fatalf("unexpected slot %+v", s)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
