package models

import "testing"

func str(s string) *string { return &s }

func completeProfile() *Profile {
	return &Profile{FullName: "Asha", RollNumber: "2K21/CO/1", Branch: "Computer Engineering", Year: "3rd Year", Hostel: "BH-1"}
}

func TestIsComplete_AllFieldsPresent(t *testing.T) {
	if !completeProfile().IsComplete() {
		t.Fatalf("expected complete profile")
	}
}

func TestIsComplete_EachMissingFieldForcesFalse(t *testing.T) {
	clear := []func(p *Profile){
		func(p *Profile) { p.FullName = "" },
		func(p *Profile) { p.RollNumber = "" },
		func(p *Profile) { p.Branch = "" },
		func(p *Profile) { p.Year = "" },
		func(p *Profile) { p.Hostel = "   " },
	}
	for i, fn := range clear {
		p := completeProfile()
		fn(p)
		if p.IsComplete() {
			t.Fatalf("case %d: profile with a blank required field reported complete", i)
		}
	}
}

func TestIsComplete_Nil(t *testing.T) {
	var p *Profile
	if p.IsComplete() {
		t.Fatalf("nil profile must not be complete")
	}
}

func TestIsComplete_OptionalFieldsIgnored(t *testing.T) {
	p := completeProfile()
	p.Bio, p.Phone, p.AvatarURL = "", "", ""
	if !p.IsComplete() {
		t.Fatalf("optional fields must not affect completeness")
	}
}

func TestProfileFieldsApplyTo(t *testing.T) {
	p := completeProfile()
	f := ProfileFields{FullName: str("  Ravi "), Bio: str("hi")}
	if f.Empty() {
		t.Fatalf("fields should not be empty")
	}
	f.ApplyTo(p)
	if p.FullName != "Ravi" || p.Bio != "hi" || p.RollNumber != "2K21/CO/1" {
		t.Fatalf("unexpected merge result: %+v", p)
	}
	if !(ProfileFields{}).Empty() {
		t.Fatalf("zero value should be empty")
	}
}
