package linux

import "testing"

func TestBuildRules_PrefixRootIsReadWrite(t *testing.T) {
	rules := BuildRules(TierRed, "/home/user/.wine")

	var found *PathRule
	for i := range rules {
		if rules[i].Path == "/home/user/.wine" {
			found = &rules[i]
			break
		}
	}
	if found == nil {
		t.Fatal("prefix root missing from ruleset")
	}
	if found.Access != ReadWriteDirAccess {
		t.Errorf("prefix root access = 0x%x, want 0x%x", found.Access, ReadWriteDirAccess)
	}
}

func TestBuildRules_SystemDirsAreReadOnly(t *testing.T) {
	rules := BuildRules(TierRed, "")
	byPath := make(map[string]uint64, len(rules))
	for _, r := range rules {
		byPath[r.Path] = r.Access
	}

	for _, dir := range ReadOnlySystemDirs {
		access, ok := byPath[dir]
		if !ok {
			t.Errorf("system dir %s missing", dir)
			continue
		}
		if access&LANDLOCK_ACCESS_FS_WRITE_FILE != 0 {
			t.Errorf("system dir %s should not be writable", dir)
		}
		if access&LANDLOCK_ACCESS_FS_EXECUTE == 0 {
			t.Errorf("system dir %s should allow execute", dir)
		}
	}

	if byPath["/dev/null"] != ReadWriteFileAccess {
		t.Errorf("/dev/null access = 0x%x, want 0x%x", byPath["/dev/null"], ReadWriteFileAccess)
	}
	if byPath["/dev/dri"] != ReadOnlyDirAccess {
		t.Errorf("/dev/dri access = 0x%x, want 0x%x", byPath["/dev/dri"], ReadOnlyDirAccess)
	}
}

func TestBuildRules_TiersNeverLoosenBelowRed(t *testing.T) {
	red := BuildRules(TierRed, "/p")
	for _, tier := range []Tier{TierYellow, TierGreen} {
		got := BuildRules(tier, "/p")
		if len(got) < len(red) {
			t.Errorf("tier %d produced fewer rules than the red baseline", tier)
		}
	}
}

func TestHandledAccessCoversEveryRight(t *testing.T) {
	rights := []uint64{
		LANDLOCK_ACCESS_FS_EXECUTE, LANDLOCK_ACCESS_FS_WRITE_FILE,
		LANDLOCK_ACCESS_FS_READ_FILE, LANDLOCK_ACCESS_FS_READ_DIR,
		LANDLOCK_ACCESS_FS_REMOVE_DIR, LANDLOCK_ACCESS_FS_REMOVE_FILE,
		LANDLOCK_ACCESS_FS_MAKE_CHAR, LANDLOCK_ACCESS_FS_MAKE_DIR,
		LANDLOCK_ACCESS_FS_MAKE_REG, LANDLOCK_ACCESS_FS_MAKE_SOCK,
		LANDLOCK_ACCESS_FS_MAKE_FIFO, LANDLOCK_ACCESS_FS_MAKE_BLOCK,
		LANDLOCK_ACCESS_FS_MAKE_SYM,
	}
	for _, r := range rights {
		if handledAccessFSv1&r == 0 {
			t.Errorf("handled access mask missing right 0x%x", r)
		}
	}
}
