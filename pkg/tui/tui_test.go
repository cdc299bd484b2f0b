package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/midifade/pkg/fade"
	"github.com/james-see/midifade/pkg/presets"
)

func newTestModel(t *testing.T) (Model, string) {
	t.Helper()
	dir := t.TempDir()
	store := presets.NewStore(filepath.Join(dir, "esitykset.json"))
	_, err := store.Save(presets.Preset{
		Name: "show",
		Scenes: []fade.Scene{
			{Name: "intro", Channels: map[int]int{1: 127}, FadeInDuration: 1, FadeOutDuration: 1, Steps: 4},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	return New(Options{Store: store, OutputDir: out}), out
}

func TestMenuListsPresets(t *testing.T) {
	m, _ := newTestModel(t)

	if len(m.menu) != 4 {
		t.Fatalf("menu = %d items, want 4", len(m.menu))
	}
	if m.menu[0].Action != ActionPreset || m.menu[0].Preset != "show" {
		t.Errorf("menu[0] = %+v", m.menu[0])
	}
	if m.menu[len(m.menu)-1].Action != ActionExit {
		t.Error("last item is not Exit")
	}
	if !strings.Contains(m.View(), "show") {
		t.Error("View() does not list the preset")
	}
}

func TestMenuNavigation(t *testing.T) {
	m, _ := newTestModel(t)

	var model tea.Model = m
	for i := 0; i < 10; i++ {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if got := model.(Model).menuIndex; got != 3 {
		t.Errorf("menuIndex = %d, want clamped 3", got)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := model.(Model).menuIndex; got != 2 {
		t.Errorf("menuIndex = %d, want 2", got)
	}
}

func TestEnterPresetStartsGenerating(t *testing.T) {
	m, _ := newTestModel(t)

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if got := model.(Model).state; got != StateWorking {
		t.Errorf("state = %v, want StateWorking", got)
	}
}

func TestPresetGenerateWritesFiles(t *testing.T) {
	m, out := newTestModel(t)

	msg := m.performPresetGenerate("show")()
	done, ok := msg.(generateDoneMsg)
	if !ok {
		t.Fatalf("msg = %T, want generateDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("generate error = %v", done.err)
	}
	if _, err := os.Stat(filepath.Join(out, "intro_fade_in.mid")); err != nil {
		t.Error(err)
	}

	model, _ := m.Update(done)
	view := model.View()
	if model.(Model).state != StateResult || !strings.Contains(view, "intro_fade_out.mid") {
		t.Errorf("result view:\n%s", view)
	}
}

func TestImportRefreshesMenu(t *testing.T) {
	m, _ := newTestModel(t)

	path := filepath.Join(t.TempDir(), "import.json")
	doc := `[{"name":"encore","scenes":[{"name":"x","channels":{"2":90},"fade_in_duration":1,"fade_out_duration":1}]}]`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	msg := m.performImport(path)()
	model, _ := m.Update(msg)
	got := model.(Model)

	if got.err != nil {
		t.Fatalf("import error = %v", got.err)
	}
	if got.summary == nil || got.summary.Imported != 1 {
		t.Errorf("summary = %+v", got.summary)
	}
	if len(got.menu) != 5 || got.menu[1].Preset != "encore" {
		t.Errorf("menu not refreshed: %+v", got.menu)
	}
}

func TestResultReturnsToMenu(t *testing.T) {
	m, _ := newTestModel(t)
	m.state = StateResult
	m.err = os.ErrNotExist

	if !strings.Contains(m.View(), "Failed") {
		t.Error("error view missing")
	}

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := model.(Model)
	if got.state != StateMenu || got.err != nil {
		t.Errorf("state/err = %v/%v", got.state, got.err)
	}
}
