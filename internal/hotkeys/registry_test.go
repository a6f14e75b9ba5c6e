package hotkeys

import (
	"errors"
	"log/slog"
	"slices"
	"testing"

	"trayhop/internal/testutil"
)

type recordingSink struct {
	delivered []Action
}

func (s *recordingSink) Deliver(action Action) {
	s.delivered = append(s.delivered, action)
}

func newTestRegistry(t *testing.T, source BindingSource) (*Registry, *MemoryRegistrar, *recordingSink) {
	t.Helper()
	registrar := NewMemoryRegistrar()
	sink := &recordingSink{}
	reg := NewRegistry(source, registrar, sink)
	reg.Install(nil)
	return reg, registrar, sink
}

func liveActions(reg *Registry) []Action {
	var out []Action
	for _, b := range reg.Bindings() {
		out = append(out, b.Action)
	}
	return out
}

func TestRefreshFirstWinsOnDuplicateCombo(t *testing.T) {
	comboX := MustParseCombo("Ctrl+Alt+Space")
	comboY := MustParseCombo("Ctrl+Alt+Right")
	source := StaticSource{
		ToggleVisibility: comboX,
		NextPage:         comboX,
		PreviousPage:     comboY,
	}
	reg, registrar, sink := newTestRegistry(t, source)
	logs := testutil.CaptureLogs(t, slog.LevelWarn)

	report := reg.Refresh()

	if !logs.Contains("duplicate combo") || !logs.Contains("skipped=next-page") {
		t.Fatalf("conflict not logged: %s", logs.String())
	}
	if got, want := liveActions(reg), []Action{ToggleVisibility, PreviousPage}; !slices.Equal(got, want) {
		t.Fatalf("live actions = %v, want %v", got, want)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want exactly one", report.Conflicts)
	}
	if c := report.Conflicts[0]; c.Action != NextPage || c.Winner != ToggleVisibility || c.Combo != comboX {
		t.Fatalf("conflict = %+v", c)
	}
	if len(registrar.LiveCombos()) != 2 {
		t.Fatalf("registrar holds %v, want 2 combos", registrar.LiveCombos())
	}

	if !registrar.Fire(comboX) {
		t.Fatal("Fire(comboX) found no registration")
	}
	if !slices.Equal(sink.delivered, []Action{ToggleVisibility}) {
		t.Fatalf("delivered = %v, want only toggle-visibility", sink.delivered)
	}
}

func TestRefreshTwiceKeepsSameLiveSet(t *testing.T) {
	source := StaticSource{
		ToggleVisibility: MustParseCombo("Ctrl+Alt+Space"),
		JumpApps:         MustParseCombo("Ctrl+Alt+1"),
		JumpNotes:        MustParseCombo("Ctrl+Alt+3"),
	}
	reg, registrar, _ := newTestRegistry(t, source)

	reg.Refresh()
	first := registrar.LiveCombos()
	firstBindings := liveActions(reg)

	reg.Refresh()
	second := registrar.LiveCombos()

	if !slices.Equal(first, second) {
		t.Fatalf("live combos changed across refresh: %v -> %v", first, second)
	}
	if !slices.Equal(firstBindings, liveActions(reg)) {
		t.Fatalf("live bindings changed across refresh")
	}
	if len(second) != 3 {
		t.Fatalf("live combos = %v, want 3", second)
	}
	register, unregister := registrar.Calls()
	if register != 6 || unregister != 3 {
		t.Fatalf("calls = (%d register, %d unregister), want (6, 3)", register, unregister)
	}
}

func TestRefreshAllocatesFreshIDsAndIgnoresStaleOnes(t *testing.T) {
	combo := MustParseCombo("Ctrl+Alt+Space")
	reg, registrar, sink := newTestRegistry(t, StaticSource{ToggleVisibility: combo})

	reg.Refresh()
	oldIDs := registrar.LiveIDs()
	reg.Refresh()
	newIDs := registrar.LiveIDs()

	if len(oldIDs) != 1 || len(newIDs) != 1 {
		t.Fatalf("ids = %v then %v, want one each", oldIDs, newIDs)
	}
	if newIDs[0] <= oldIDs[0] {
		t.Fatalf("hotkey ids not monotonic: %d then %d", oldIDs[0], newIDs[0])
	}

	registrar.FireID(oldIDs[0])
	if len(sink.delivered) != 0 {
		t.Fatalf("stale id delivered %v", sink.delivered)
	}
	registrar.FireID(9999)
	if len(sink.delivered) != 0 {
		t.Fatalf("unknown id delivered %v", sink.delivered)
	}
	registrar.FireID(newIDs[0])
	if !slices.Equal(sink.delivered, []Action{ToggleVisibility}) {
		t.Fatalf("delivered = %v", sink.delivered)
	}
}

func TestRefreshWrapsIDsWithinRegistrarRange(t *testing.T) {
	source := StaticSource{
		ToggleVisibility: MustParseCombo("Ctrl+Alt+Space"),
		NextPage:         MustParseCombo("Ctrl+Alt+Right"),
		PreviousPage:     MustParseCombo("Ctrl+Alt+Left"),
	}
	reg, registrar, sink := newTestRegistry(t, source)
	reg.nextID = MaxHotkeyID - 1

	report := reg.Refresh()

	var ids []uint32
	for _, b := range report.Registered {
		ids = append(ids, b.HotkeyID)
	}
	if want := []uint32{MaxHotkeyID, 1, 2}; !slices.Equal(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	registrar.FireID(1)
	if !slices.Equal(sink.delivered, []Action{NextPage}) {
		t.Fatalf("delivered = %v, want [next-page]", sink.delivered)
	}

	for range 3 * int(MaxHotkeyID) / len(source) {
		reg.Refresh()
	}
	if len(reg.Bindings()) != len(source) {
		t.Fatalf("bindings after many refreshes = %+v", reg.Bindings())
	}
	for _, id := range registrar.LiveIDs() {
		if id == 0 || id > MaxHotkeyID {
			t.Fatalf("live id %d outside [1, %d]", id, MaxHotkeyID)
		}
	}
}

func TestRefreshSkipsRegistrarFailures(t *testing.T) {
	blocked := MustParseCombo("Ctrl+Alt+Space")
	source := StaticSource{
		ToggleVisibility: blocked,
		NextPage:         MustParseCombo("Ctrl+Alt+Right"),
	}
	reg, registrar, _ := newTestRegistry(t, source)
	registrar.Reject(blocked, errors.New("claimed by another app"))

	report := reg.Refresh()

	if len(report.Failures) != 1 || report.Failures[0].Action != ToggleVisibility {
		t.Fatalf("failures = %+v", report.Failures)
	}
	if got := liveActions(reg); !slices.Equal(got, []Action{NextPage}) {
		t.Fatalf("live actions = %v, want [next-page]", got)
	}
}

func TestRefreshNormalizesDeviceBitsBeforeDedup(t *testing.T) {
	source := StaticSource{
		NextPage:     Combo{Key: KeyRight, Modifiers: ModCtrl | ModCapsLock},
		PreviousPage: Combo{Key: KeyRight, Modifiers: ModCtrl},
	}
	reg, _, _ := newTestRegistry(t, source)

	report := reg.Refresh()
	if len(report.Registered) != 1 || len(report.Conflicts) != 1 {
		t.Fatalf("report = %+v, want one registration and one conflict", report)
	}
	if report.Registered[0].Combo.Modifiers != ModCtrl {
		t.Fatalf("registered modifiers = 0x%X, want Ctrl only", report.Registered[0].Combo.Modifiers)
	}
}

func TestRefreshPicksUpSourceChanges(t *testing.T) {
	reg, registrar, sink := newTestRegistry(t, StaticSource{NextPage: MustParseCombo("Ctrl+N")})
	reg.Refresh()

	reg.SetSource(StaticSource{PreviousPage: MustParseCombo("Ctrl+P")})
	reg.Refresh()

	if got := liveActions(reg); !slices.Equal(got, []Action{PreviousPage}) {
		t.Fatalf("live actions = %v", got)
	}
	if registrar.Fire(MustParseCombo("Ctrl+N")) {
		t.Fatal("old combo still registered")
	}
	registrar.Fire(MustParseCombo("Ctrl+P"))
	if !slices.Equal(sink.delivered, []Action{PreviousPage}) {
		t.Fatalf("delivered = %v", sink.delivered)
	}
}

func TestInstallIsIdempotentAndUsesDispatch(t *testing.T) {
	registrar := NewMemoryRegistrar()
	sink := &recordingSink{}
	reg := NewRegistry(StaticSource{ToggleVisibility: MustParseCombo("Ctrl+T")}, registrar, sink)

	var queued []func()
	reg.Install(func(fn func()) { queued = append(queued, fn) })
	reg.Install(nil)
	if !reg.Installed() {
		t.Fatal("Installed() = false after Install")
	}
	reg.Refresh()

	registrar.Fire(MustParseCombo("Ctrl+T"))
	if len(sink.delivered) != 0 {
		t.Fatal("event delivered before dispatch ran")
	}
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1 (second Install must not replace dispatch)", len(queued))
	}
	queued[0]()
	if !slices.Equal(sink.delivered, []Action{ToggleVisibility}) {
		t.Fatalf("delivered = %v", sink.delivered)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	reg, registrar, _ := newTestRegistry(t, StaticSource{
		ToggleVisibility: MustParseCombo("Ctrl+T"),
		JumpFavorites:    MustParseCombo("Ctrl+2"),
	})
	reg.Refresh()

	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if live := registrar.LiveCombos(); len(live) != 0 {
		t.Fatalf("registrar still holds %v after Close", live)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	reg.Refresh()
	if live := registrar.LiveCombos(); len(live) != 0 {
		t.Fatalf("Refresh after Close registered %v", live)
	}
}

func TestSpecSource(t *testing.T) {
	source := SpecSource(map[string]string{
		"toggle-visibility": "Ctrl+Alt+Space",
		"next-page":         "Ctrl+Alt+Nope",
		"launch-rocket":     "Ctrl+R",
		"previous-page":     "  ",
	})

	if combo, ok := source.Lookup(ToggleVisibility); !ok || combo.String() != "Ctrl+Alt+SPACE" {
		t.Fatalf("Lookup(toggle-visibility) = (%v, %v)", combo, ok)
	}
	for _, action := range []Action{NextPage, PreviousPage, JumpApps} {
		if _, ok := source.Lookup(action); ok {
			t.Fatalf("Lookup(%v) should be unbound", action)
		}
	}
}
