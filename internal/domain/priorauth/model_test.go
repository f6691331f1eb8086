package priorauth

import "testing"

func TestValidStatus(t *testing.T) {
	valid := []Status{StatusPending, StatusSubmitted, StatusApproved, StatusDenied, StatusNeedsInfo, StatusError}
	for _, s := range valid {
		if !ValidStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}

	invalid := []Status{"", "cancelled", "PENDING", "in_review"}
	for _, s := range invalid {
		if ValidStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestOverridable(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusDenied, StatusNeedsInfo} {
		if !Overridable(s) {
			t.Errorf("expected %s to be overridable", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSubmitted, StatusError, ""} {
		if Overridable(s) {
			t.Errorf("expected %q to not be overridable", s)
		}
	}
}
