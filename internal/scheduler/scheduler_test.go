package scheduler

import "testing"

func TestRegister(t *testing.T) {
	s := New(nil)
	if err := s.Register("0 0 22 * * 1-5"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
	if err := s.Register("not a cron spec"); err == nil {
		t.Error("invalid spec accepted")
	}
}
