package main

import (
	"reflect"
	"testing"
)

func TestTokenizeStages_SingleCommand(t *testing.T) {
	stages, err := tokenizeStages("echo hello world")
	if err != nil {
		t.Fatalf("tokenizeStages returned error: %v", err)
	}
	want := [][]string{{"echo", "hello", "world"}}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("got %v, want %v", stages, want)
	}
}

func TestTokenizeStages_SplitsOnPipe(t *testing.T) {
	stages, err := tokenizeStages("printf 'a b' | wc -w")
	if err != nil {
		t.Fatalf("tokenizeStages returned error: %v", err)
	}
	want := [][]string{{"printf", "a b"}, {"wc", "-w"}}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("got %v, want %v", stages, want)
	}
}

func TestTokenizeStages_QuotedPipeIsNotASeparator(t *testing.T) {
	stages, err := tokenizeStages(`echo "a | b"`)
	if err != nil {
		t.Fatalf("tokenizeStages returned error: %v", err)
	}
	want := [][]string{{"echo", "a | b"}}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("got %v, want %v", stages, want)
	}
}
