package fdplan

import "testing"

func TestSimulate_InheritedPassesThrough(t *testing.T) {
	entry := Table{
		0: {Kind: KindInherited, Handle: "stdin"},
		1: {Kind: KindInherited, Handle: "stdout"},
		2: {Kind: KindInherited, Handle: "stderr"},
	}
	final, fds := Simulate(entry, nil)
	if len(fds) != 3 {
		t.Fatalf("expected 3 live fds, got %v", fds)
	}
	if final[1].Handle != "stdout" {
		t.Fatalf("fd 1 handle changed unexpectedly: %v", final[1])
	}
}

func TestSimulate_ToFileOverridesInherited(t *testing.T) {
	entry := Table{1: {Kind: KindInherited, Handle: "stdout"}}
	final, fds := Simulate(entry, []Op{
		{Kind: OpToFile, Fd: 1, Path: "/tmp/out", Flags: 0},
	})
	if final[1].Kind != KindFile || final[1].Path != "/tmp/out" {
		t.Fatalf("fd 1 not redirected to file: %+v", final[1])
	}
	if len(fds) != 1 || fds[0] != 1 {
		t.Fatalf("unexpected live fd set: %v", fds)
	}
}

func TestSimulate_ToFdSnapshotsCurrentValue(t *testing.T) {
	// 2>&1 >file : fd2 aliases fd1's ORIGINAL target even though fd1 is
	// later redirected to a file. This matches bash, not a live reference.
	entry := Table{
		1: {Kind: KindInherited, Handle: "stdout"},
		2: {Kind: KindInherited, Handle: "stderr"},
	}
	final, _ := Simulate(entry, []Op{
		{Kind: OpToFd, Fd: 2, Src: 1},
		{Kind: OpToFile, Fd: 1, Path: "/tmp/out"},
	})
	if final[2].Kind != KindInherited || final[2].Handle != "stdout" {
		t.Fatalf("fd 2 should have snapshotted original fd1 (stdout), got %+v", final[2])
	}
	if final[1].Kind != KindFile || final[1].Path != "/tmp/out" {
		t.Fatalf("fd 1 should be redirected to file, got %+v", final[1])
	}
}

func TestSimulate_CloseRemovesFromLiveSet(t *testing.T) {
	entry := Table{3: {Kind: KindInherited, Handle: "extra"}}
	final, fds := Simulate(entry, []Op{{Kind: OpClose, Fd: 3}})
	if final[3].Kind != KindClosed {
		t.Fatalf("fd 3 should be closed, got %+v", final[3])
	}
	for _, fd := range fds {
		if fd == 3 {
			t.Fatalf("closed fd 3 should not appear in live set: %v", fds)
		}
	}
}

func TestSimulate_ToFdOfClosedSourceClosesDest(t *testing.T) {
	final, fds := Simulate(nil, []Op{{Kind: OpToFd, Fd: 5, Src: 9}})
	if final[5].Kind != KindClosed {
		t.Fatalf("fd 5 should be closed when src 9 was never set, got %+v", final[5])
	}
	if len(fds) != 0 {
		t.Fatalf("expected no live fds, got %v", fds)
	}
}

func TestSimulate_LastOpOnSameFdWins(t *testing.T) {
	final, _ := Simulate(nil, []Op{
		{Kind: OpToFile, Fd: 1, Path: "/tmp/a"},
		{Kind: OpToFile, Fd: 1, Path: "/tmp/b"},
	})
	if final[1].Path != "/tmp/b" {
		t.Fatalf("expected last op to win, got path %q", final[1].Path)
	}
}

func TestSimulate_SetInheritedForDataFeed(t *testing.T) {
	final, fds := Simulate(nil, []Op{
		{Kind: OpSetInherited, Fd: 0, Handle: "pipe-read-end"},
	})
	if final[0].Kind != KindInherited || final[0].Handle != "pipe-read-end" {
		t.Fatalf("fd 0 not set to inherited handle: %+v", final[0])
	}
	if len(fds) != 1 || fds[0] != 0 {
		t.Fatalf("unexpected live fd set: %v", fds)
	}
}
