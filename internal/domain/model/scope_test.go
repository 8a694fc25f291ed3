package model

import "testing"

func TestDeriveScope(t *testing.T) {
	tests := []struct {
		name   string
		course Course
		own    int64
		want   ScopeKey
	}{
		{
			name:   "курс собственной категории",
			course: Course{ID: 42, CategoryID: 1},
			own:    1,
			want:   ScopeKey{RefID: 42, Type: ScopeOwn},
		},
		{
			name:   "курс другой категории",
			course: Course{ID: 42, CategoryID: 7},
			own:    1,
			want:   ScopeKey{RefID: 7, Type: ScopeShared},
		},
		{
			name:   "настроенная категория",
			course: Course{ID: 5, CategoryID: 7},
			own:    7,
			want:   ScopeKey{RefID: 5, Type: ScopeOwn},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveScope(tt.course, tt.own); got != tt.want {
				t.Errorf("DeriveScope() = %+v, хотели %+v", got, tt.want)
			}
		})
	}
}

func TestScopeKeyString(t *testing.T) {
	own := ScopeKey{RefID: 3, Type: ScopeOwn}.String()
	shared := ScopeKey{RefID: 3, Type: ScopeShared}.String()
	if own == shared {
		t.Errorf("ключи own и shared с одинаковым ID совпадают: %q", own)
	}
	if own != "own-3" {
		t.Errorf("String() = %q, хотели own-3", own)
	}
}

func TestFileRecordLabel(t *testing.T) {
	f := &FileRecord{Filename: "report.pdf"}
	if f.Label() != "report.pdf" {
		t.Errorf("Label() = %q, хотели report.pdf", f.Label())
	}
	f.Description = "Отчёт"
	if f.Label() != "Отчёт" {
		t.Errorf("Label() = %q, хотели Отчёт", f.Label())
	}
}
