package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/errs"
)

type mockRepo struct {
	byID   map[uuid.UUID]*TestDefinition
	byCode map[string]*TestDefinition
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:   make(map[uuid.UUID]*TestDefinition),
		byCode: make(map[string]*TestDefinition),
	}
}

func (m *mockRepo) Create(_ context.Context, def *TestDefinition) error {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	m.byID[def.ID] = def
	m.byCode[def.Code] = def
	return nil
}

func (m *mockRepo) Update(_ context.Context, def *TestDefinition) error {
	if _, ok := m.byID[def.ID]; !ok {
		return errs.NotFound("test definition not found")
	}
	m.byID[def.ID] = def
	m.byCode[def.Code] = def
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*TestDefinition, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, errs.NotFound("test definition not found")
	}
	return d, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*TestDefinition, error) {
	d, ok := m.byCode[code]
	if !ok {
		return nil, errs.NotFound("test definition not found")
	}
	return d, nil
}

func (m *mockRepo) ListActive(_ context.Context) ([]*TestDefinition, error) {
	var out []*TestDefinition
	for _, d := range m.byID {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func validDef() *TestDefinition {
	return &TestDefinition{
		Code:              "cbc",
		Name:              "Complete Blood Count",
		SampleType:        "blood",
		Price:             1500,
		TurnaroundMinutes: 45,
		FastingRequired:   false,
		Parameters:        []string{"WBC", "RBC", "HGB", "PLT"},
	}
}

func TestCreateDefinition(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	svc := NewService(repo)

	def := validDef()
	if err := svc.CreateDefinition(ctx, def); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if def.Code != "CBC" {
		t.Errorf("code should be uppercased, got %q", def.Code)
	}
	if !def.Active {
		t.Error("new definitions should be active")
	}

	dup := validDef()
	err := svc.CreateDefinition(ctx, dup)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("duplicate code: want conflict, got %v", err)
	}
}

func TestCreateDefinition_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepo())

	tests := []struct {
		name   string
		mutate func(*TestDefinition)
	}{
		{"missing code", func(d *TestDefinition) { d.Code = "  " }},
		{"missing name", func(d *TestDefinition) { d.Name = "" }},
		{"negative price", func(d *TestDefinition) { d.Price = -1 }},
		{"zero turnaround", func(d *TestDefinition) { d.TurnaroundMinutes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDef()
			tt.mutate(def)
			err := svc.CreateDefinition(ctx, def)
			if !errs.IsKind(err, errs.KindValidation) {
				t.Errorf("want validation error, got %v", err)
			}
		})
	}
}

func TestUpdateDefinition_CodeIsImmutable(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	svc := NewService(repo)

	def := validDef()
	if err := svc.CreateDefinition(ctx, def); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	upd := *def
	upd.Code = "XRAY"
	upd.Name = "Complete Blood Count (updated)"
	if err := svc.UpdateDefinition(ctx, &upd); err != nil {
		t.Fatalf("UpdateDefinition: %v", err)
	}
	if upd.Code != "CBC" {
		t.Errorf("code changed on update: %q", upd.Code)
	}
}

func TestGetByCode_Normalizes(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	svc := NewService(repo)

	if err := svc.CreateDefinition(ctx, validDef()); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	got, err := svc.GetByCode(ctx, "cbc")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.Name != "Complete Blood Count" {
		t.Errorf("unexpected definition: %+v", got)
	}

	if _, err := svc.GetByCode(ctx, ""); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("empty code: want validation error, got %v", err)
	}
}
