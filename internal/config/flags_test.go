package config

import (
	"reflect"
	"testing"
)

func TestExtractPairFlags_ExtractsMatchingFlags(t *testing.T) {
	args := []string{"serve", "-H", "Authorization", "Bearer abc", "--port", "8080", "-H", "X-Trace", "1"}
	remaining, pairs, err := ExtractPairFlags(args, "-H", "--headers")
	if err != nil {
		t.Fatalf("ExtractPairFlags: %v", err)
	}

	wantRemaining := []string{"serve", "--port", "8080"}
	if !reflect.DeepEqual(remaining, wantRemaining) {
		t.Fatalf("remaining = %v, want %v", remaining, wantRemaining)
	}

	wantPairs := [][2]string{{"Authorization", "Bearer abc"}, {"X-Trace", "1"}}
	if !reflect.DeepEqual(pairs, wantPairs) {
		t.Fatalf("pairs = %v, want %v", pairs, wantPairs)
	}
}

func TestExtractPairFlags_StopsConsumingAtDoubleDash(t *testing.T) {
	args := []string{"--port", "8080", "--", "-H", "not-a-flag-here"}
	remaining, pairs, err := ExtractPairFlags(args, "-H")
	if err != nil {
		t.Fatalf("ExtractPairFlags: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("pairs = %v, want none (everything after -- is passed through)", pairs)
	}
	wantRemaining := []string{"--port", "8080", "--", "-H", "not-a-flag-here"}
	if !reflect.DeepEqual(remaining, wantRemaining) {
		t.Fatalf("remaining = %v, want %v", remaining, wantRemaining)
	}
}

func TestExtractPairFlags_ErrorsOnTruncatedPair(t *testing.T) {
	_, _, err := ExtractPairFlags([]string{"-H", "only-one-token"}, "-H")
	if err == nil {
		t.Fatal("expected an error when a pair flag is missing its second token")
	}
}

func TestExtractPairFlags_NoMatchesLeavesArgsUntouched(t *testing.T) {
	args := []string{"--port", "8080"}
	remaining, pairs, err := ExtractPairFlags(args, "-H")
	if err != nil {
		t.Fatalf("ExtractPairFlags: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("pairs = %v, want none", pairs)
	}
	if !reflect.DeepEqual(remaining, args) {
		t.Fatalf("remaining = %v, want %v", remaining, args)
	}
}

func TestPairsToMap_LaterValueWins(t *testing.T) {
	got := pairsToMap([][2]string{{"K", "first"}, {"K", "second"}})
	if got["K"] != "second" {
		t.Fatalf("got[K] = %q, want %q", got["K"], "second")
	}
}

func TestPairsToMap_EmptyReturnsNil(t *testing.T) {
	if got := pairsToMap(nil); got != nil {
		t.Fatalf("pairsToMap(nil) = %v, want nil", got)
	}
}
