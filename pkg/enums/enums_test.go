package enums

import "testing"

func TestParseMarketStatus(t *testing.T) {
	got, err := ParseMarketStatus("settled")
	if err != nil || got != MarketStatusSettled {
		t.Fatalf("unexpected parse result %q err=%v", got, err)
	}
	if _, err := ParseMarketStatus("paused"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOutcome(t *testing.T) {
	if OutcomeYes.Opposite() != OutcomeNo || OutcomeNo.Opposite() != OutcomeYes {
		t.Fatal("opposite sides mismatch")
	}
	if Outcome("maybe").IsValid() {
		t.Fatal("maybe is not a market side")
	}
	if _, err := ParseOutcome("YES"); err == nil {
		t.Fatal("outcomes are lowercase")
	}
}

func TestStakeStatusTerminal(t *testing.T) {
	if StakeStatusActive.IsTerminal() {
		t.Fatal("active stakes are not terminal")
	}
	for _, s := range []StakeStatus{StakeStatusWon, StakeStatusLost, StakeStatusRefunded, StakeStatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestOutboxEventTypes(t *testing.T) {
	if _, err := ParseOutboxEventType("stake_placed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if OutboxEventType("order_created").IsValid() {
		t.Fatal("unexpected event type accepted")
	}
	if !AggregateStake.IsValid() || !PromoRejectAlreadyUsed.IsValid() || !ActivityStakePlaced.IsValid() {
		t.Fatal("known values should be valid")
	}
}
