package business

import (
	"testing"
	"time"
)

func TestServiceNamed(t *testing.T) {
	b := &Business{Services: []Service{
		{Name: "Haircut", DurationMins: 45, Price: 40},
		{Name: "Consultation", DurationMins: 30},
	}}

	if svc, ok := b.ServiceNamed("haircut"); !ok || svc.DurationMins != 45 {
		t.Fatalf("expected case-insensitive match, got %+v ok=%v", svc, ok)
	}
	if _, ok := b.ServiceNamed("hair"); ok {
		t.Fatal("partial names must not match")
	}
}

func TestServiceDuration(t *testing.T) {
	b := &Business{Services: []Service{{Name: "Haircut", DurationMins: 45}}}

	if d := b.ServiceDuration("Haircut"); d != 45*time.Minute {
		t.Fatalf("expected catalog duration, got %s", d)
	}
	if d := b.ServiceDuration("Massage"); d != 30*time.Minute {
		t.Fatalf("expected default duration for unknown service, got %s", d)
	}
}

func TestLocation(t *testing.T) {
	b := &Business{Timezone: "America/Chicago"}
	if b.Location().String() != "America/Chicago" {
		t.Fatalf("expected configured zone, got %s", b.Location())
	}

	b = &Business{Timezone: "Not/AZone"}
	if b.Location() != time.UTC {
		t.Fatal("unknown zone should fall back to UTC")
	}
	b = &Business{}
	if b.Location() != time.UTC {
		t.Fatal("empty zone should fall back to UTC")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bella's Hair Studio", "bella-s-hair-studio"},
		{"  ACME  Plumbing!  ", "acme-plumbing"},
		{"123 Go", "123-go"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultWorkHours(t *testing.T) {
	wh := DefaultWorkHours()
	if wh["monday"].Start != "09:00" || wh["monday"].End != "17:00" {
		t.Fatalf("unexpected weekday hours: %+v", wh["monday"])
	}
	if !wh["sunday"].Off {
		t.Fatal("expected sunday off")
	}
}
