package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

type fakeChecker struct {
	taken map[string]bool
}

func (c *fakeChecker) Exists(ctx context.Context, kind ReferenceKind, reference string) (bool, error) {
	return c.taken[reference], nil
}

type saturatedChecker struct{}

func (saturatedChecker) Exists(ctx context.Context, kind ReferenceKind, reference string) (bool, error) {
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateFormat(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gen := newReferenceGenerator(&fakeChecker{taken: map[string]bool{}}, fixedClock(now))

	tests := []struct {
		name    string
		kind    ReferenceKind
		ownerID uint
		pattern string
	}{
		{
			name:    "dues reference has month granularity",
			kind:    ReferenceKindDues,
			ownerID: 7,
			pattern: `^COT-202603-0007-[A-Z0-9]{5}$`,
		},
		{
			name:    "event dues prefix",
			kind:    ReferenceKindEventDues,
			ownerID: 7,
			pattern: `^EVT-202603-0007-[A-Z0-9]{5}$`,
		},
		{
			name:    "payment reference has day granularity",
			kind:    ReferenceKindPayment,
			ownerID: 12,
			pattern: `^PAI-20260315-0012-[A-Z0-9]{5}$`,
		},
		{
			name:    "refund prefix",
			kind:    ReferenceKindRefund,
			ownerID: 12,
			pattern: `^RMB-20260315-0012-[A-Z0-9]{5}$`,
		},
		{
			name:    "rejection prefix",
			kind:    ReferenceKindRejection,
			ownerID: 12,
			pattern: `^REJ-20260315-0012-[A-Z0-9]{5}$`,
		},
		{
			name:    "zero owner id omits the owner part",
			kind:    ReferenceKindDues,
			pattern: `^COT-202603-[A-Z0-9]{5}$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reference, err := gen.Generate(context.Background(), tt.kind, tt.ownerID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !regexp.MustCompile(tt.pattern).MatchString(reference) {
				t.Errorf("reference %q does not match %s", reference, tt.pattern)
			}
		})
	}
}

func TestGenerateAvoidsCollisions(t *testing.T) {
	checker := &fakeChecker{taken: map[string]bool{}}
	gen := newReferenceGenerator(checker, fixedClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)))

	seen := map[string]bool{}
	for i := 0; i < 10000; i++ {
		reference, err := gen.Generate(context.Background(), ReferenceKindPayment, 1)
		if err != nil {
			t.Fatalf("generation %d failed: %v", i, err)
		}
		if seen[reference] {
			t.Fatalf("duplicate reference %q at iteration %d", reference, i)
		}
		seen[reference] = true
		checker.taken[reference] = true
	}
}

func TestGenerateExhaustion(t *testing.T) {
	gen := newReferenceGenerator(saturatedChecker{}, nil)

	_, err := gen.Generate(context.Background(), ReferenceKindDues, 1)
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("error = %v; want ErrGenerationExhausted", err)
	}
}
