package linux

import "testing"

func TestSyscallNumber_Watchlist(t *testing.T) {
	tests := []struct {
		name     string
		expected int
	}{
		{"connect", 42},
		{"bind", 49},
		{"open", 2},
		{"openat", 257},
		{"stat", 4},
		{"lstat", 6},
		{"newfstatat", 262},
		{"access", 21},
		{"faccessat", 269},
		{"mkdir", 83},
		{"mkdirat", 258},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SyscallNumber(tt.name)
			if !ok {
				t.Fatalf("syscall %s not found", tt.name)
			}
			if got != tt.expected {
				t.Errorf("SyscallNumber(%s) = %d, want %d", tt.name, got, tt.expected)
			}
		})
	}
}

func TestSyscallNumber_Unknown(t *testing.T) {
	if _, ok := SyscallNumber("not_a_real_syscall"); ok {
		t.Error("expected unknown syscall to be absent")
	}
}

func TestBpfStmt_Encoding(t *testing.T) {
	inst := bpfStmt(BPF_RET|BPF_K, SECCOMP_RET_ALLOW)
	if inst.Code != BPF_RET|BPF_K {
		t.Errorf("Code = %d, want %d", inst.Code, BPF_RET|BPF_K)
	}
	if inst.K != SECCOMP_RET_ALLOW {
		t.Errorf("K = %d, want %d", inst.K, SECCOMP_RET_ALLOW)
	}
	if inst.Jt != 0 || inst.Jf != 0 {
		t.Error("statement should have Jt=0 and Jf=0")
	}
}

func TestBpfJump_Encoding(t *testing.T) {
	inst := bpfJump(BPF_JMP|BPF_JEQ|BPF_K, AUDIT_ARCH_X86_64, 1, 0)
	if inst.Code != BPF_JMP|BPF_JEQ|BPF_K {
		t.Errorf("Code = %d, want %d", inst.Code, BPF_JMP|BPF_JEQ|BPF_K)
	}
	if inst.K != AUDIT_ARCH_X86_64 {
		t.Errorf("K = %d, want %d", inst.K, AUDIT_ARCH_X86_64)
	}
	if inst.Jt != 1 || inst.Jf != 0 {
		t.Errorf("Jt/Jf = %d/%d, want 1/0", inst.Jt, inst.Jf)
	}
}

func TestBuildNotifyFilter_Layout(t *testing.T) {
	filter := buildNotifyFilter()

	n := len(watchlist)
	wantLen := 4 + n + 2
	if len(filter) != wantLen {
		t.Fatalf("filter length = %d, want %d", len(filter), wantLen)
	}

	if filter[0].Code != BPF_LD|BPF_W|BPF_ABS || filter[0].K != offsetArch {
		t.Error("instruction 0 should load the architecture")
	}
	if filter[1].Code != BPF_JMP|BPF_JEQ|BPF_K || filter[1].K != AUDIT_ARCH_X86_64 {
		t.Error("instruction 1 should check the architecture")
	}
	if filter[2].Code != BPF_RET|BPF_K || filter[2].K != SECCOMP_RET_KILL_PROCESS {
		t.Error("instruction 2 should kill on arch mismatch")
	}
	if filter[3].Code != BPF_LD|BPF_W|BPF_ABS || filter[3].K != offsetNR {
		t.Error("instruction 3 should load the syscall number")
	}

	allowIdx := wantLen - 2
	notifyIdx := wantLen - 1
	if filter[allowIdx].K != SECCOMP_RET_ALLOW {
		t.Errorf("second-to-last instruction should be the default allow, got K=0x%x", filter[allowIdx].K)
	}
	if filter[notifyIdx].K != SECCOMP_RET_USER_NOTIF {
		t.Errorf("last instruction should be user-notify, got K=0x%x", filter[notifyIdx].K)
	}

	// Every watchlist comparison should be able to reach the notify return
	// via its Jt offset and fall through via Jf=0.
	for i := range watchlist {
		instr := filter[4+i]
		if instr.Jf != 0 {
			t.Errorf("watchlist comparison %d should fall through on mismatch (Jf=0), got %d", i, instr.Jf)
		}
		target := 4 + i + int(instr.Jt) + 1
		if target != notifyIdx {
			t.Errorf("watchlist comparison %d jumps to index %d, want %d (the notify return)", i, target, notifyIdx)
		}
	}
}

func TestBuildNotifyFilter_WatchlistSyscallsResolve(t *testing.T) {
	for _, name := range watchlist {
		if _, ok := syscallMap[name]; !ok {
			t.Errorf("watchlist syscall %q has no entry in syscallMap", name)
		}
	}
}
