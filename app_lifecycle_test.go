package main

import (
	"context"
	"log/slog"
	"errors"
	"strings"
	"sync"
	"testing"

	"trayhop/internal/config"
	"trayhop/internal/hotkeys"
	"trayhop/internal/ipc"
	"trayhop/internal/recents"
	"trayhop/internal/testutil"
)

type fakeIPCServer struct {
	mu       sync.Mutex
	executor ipc.Executor
	startErr error
	started  bool
	stopped  bool
}

func (s *fakeIPCServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeIPCServer) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *fakeIPCServer) Endpoint() string { return "fake-endpoint" }

func (s *fakeIPCServer) state() (started, stopped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, s.stopped
}

// stubServices replaces the IPC server and config watcher seams.
func stubServices(t *testing.T, server *fakeIPCServer) *sync.WaitGroup {
	t.Helper()
	origIPC := newIPCServerFn
	origWatch := watchConfigFn
	t.Cleanup(func() {
		newIPCServerFn = origIPC
		watchConfigFn = origWatch
	})

	newIPCServerFn = func(_ string, executor ipc.Executor) ipcServer {
		server.executor = executor
		return server
	}
	var watching sync.WaitGroup
	watching.Add(1)
	watchConfigFn = func(ctx context.Context, _ string, _ func(config.Config, error)) error {
		watching.Done()
		<-ctx.Done()
		return nil
	}
	return &watching
}

func TestStartupAndShutdown(t *testing.T) {
	configPath := useTempConfigDir(t)
	events, _, _ := stubRuntime(t)
	registrar := stubRegistrar(t)
	server := &fakeIPCServer{}
	watching := stubServices(t, server)

	app := NewApp()
	app.startup(context.Background())

	if app.configPath != configPath {
		t.Fatalf("configPath = %q, want %q", app.configPath, configPath)
	}
	bindings, err := app.GetBindings()
	if err != nil {
		t.Fatalf("GetBindings() error = %v", err)
	}
	if len(bindings) != 3 || len(registrar.LiveCombos()) != 3 {
		t.Fatalf("bindings = %+v, live combos = %v", bindings, registrar.LiveCombos())
	}
	if events.count("hotkeys:updated") != 1 {
		t.Fatalf("hotkeys:updated events = %d, want 1", events.count("hotkeys:updated"))
	}
	if url := app.GetWebSocketURL(); !strings.HasPrefix(url, "ws://127.0.0.1:") {
		t.Fatalf("GetWebSocketURL() = %q", url)
	}
	if app.recents == nil {
		t.Fatal("recents store not opened")
	}
	if started, _ := server.state(); !started {
		t.Fatal("ipc server not started")
	}
	watching.Wait()

	resp := server.executor.Execute(ipc.Request{Action: "next-page"})
	if !resp.OK || resp.Page != "favorites" {
		t.Fatalf("ipc next-page = %+v", resp)
	}

	app.shutdown(context.Background())

	if _, stopped := server.state(); !stopped {
		t.Fatal("ipc server not stopped")
	}
	if live := registrar.LiveCombos(); len(live) != 0 {
		t.Fatalf("registrar still holds %v after shutdown", live)
	}
	if _, err := app.recents.List(context.Background(), 0); err == nil {
		t.Fatal("recents store still open after shutdown")
	}
}

func TestStartupDegradesWhenServicesFail(t *testing.T) {
	useTempConfigDir(t)
	events, _, logger := stubRuntime(t)
	server := &fakeIPCServer{startErr: errors.New("address in use")}
	stubServices(t, server)

	origRegistrar := newPlatformRegistrarFn
	origRecents := openRecentsFn
	t.Cleanup(func() {
		newPlatformRegistrarFn = origRegistrar
		openRecentsFn = origRecents
	})
	newPlatformRegistrarFn = func() (hotkeys.Registrar, error) {
		return nil, errors.New("no display")
	}
	openRecentsFn = func(string) (*recents.Store, error) {
		return nil, errors.New("disk full")
	}

	logs := testutil.CaptureLogs(t, slog.LevelWarn)

	app := NewApp()
	app.startup(context.Background())
	defer app.shutdown(context.Background())

	if _, err := app.GetBindings(); err != nil {
		t.Fatalf("GetBindings() error = %v", err)
	}
	if changed, err := app.Navigate("next-page"); err != nil || !changed {
		t.Fatalf("Navigate(next-page) = (%v, %v), want navigation without hotkeys", changed, err)
	}
	if app.ipcServer != nil || app.recents != nil {
		t.Fatal("failed services should stay unset")
	}

	var messages []string
	for _, payload := range events.all("config:load-failed") {
		messages = append(messages, payload.(map[string]string)["message"])
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{"no display", "disk full", "address in use"} {
		if !strings.Contains(joined, want) {
			t.Errorf("warnings %q missing %q", joined, want)
		}
	}

	for _, want := range []string{"[WARN-hotkey] global hotkeys unavailable", "[WARN-recents] recents store unavailable"} {
		if !logs.Contains(want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) == 0 || !strings.Contains(strings.Join(logger.lines, "\n"), "ipc server failed") {
		t.Fatalf("runtime log = %v", logger.lines)
	}
}

func TestShutdownWithoutStartup(t *testing.T) {
	stubRuntime(t)
	app := NewApp()
	app.shutdown(context.Background())
}
