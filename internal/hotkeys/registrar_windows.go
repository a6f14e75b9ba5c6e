//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey     = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW        = user32DLL.NewProc("GetMessageW")
	procTranslateMessage   = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW   = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32DLL.NewProc("PeekMessageW")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	wmApp      = 0x8000
	pmNoRemove = 0x0000

	// modNoRepeat suppresses auto-repeat WM_HOTKEY while the combo is held.
	modNoRepeat = 0x4000


	loopCallTimeout = 2 * time.Second
)

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct (tagMSG from winuser.h).
// Field order and types must not be changed -- the layout must match
// the Win32 binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32 // reserved by Windows; required for correct struct size
}

// loopCall is a register/unregister request executed on the loop thread.
// RegisterHotKey with a nil window binds the hotkey to the calling thread,
// so both calls must run where GetMessageW runs.
type loopCall struct {
	fn   func() error
	done chan error
}

type loopReady struct {
	threadID uint32
	err      error
}

// Win32Registrar registers hotkeys with RegisterHotKey on one dedicated,
// OS-locked message-loop thread.
type Win32Registrar struct {
	mu       sync.Mutex
	threadID uint32
	doneCh   chan struct{}
	calls    chan loopCall
	handler  func(id uint32)
}

type win32Handle struct {
	id uint32
}

// NewPlatformRegistrar returns the Win32 registrar.
func NewPlatformRegistrar() (Registrar, error) {
	if err := user32DLL.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	return &Win32Registrar{}, nil
}

// SetHandler implements Registrar.
func (w *Win32Registrar) SetHandler(fn func(id uint32)) {
	w.mu.Lock()
	w.handler = fn
	w.mu.Unlock()
}

func (w *Win32Registrar) currentHandler() func(id uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handler
}

// Register implements Registrar.
func (w *Win32Registrar) Register(key KeyCode, mods Modifier, id uint32) (Handle, error) {
	if id == 0 || id > MaxHotkeyID {
		return nil, fmt.Errorf("hotkey ID out of range (ID=%d)", id)
	}
	err := w.runOnLoop(func() error {
		return registerHotKey(id, uint32(mods&deviceIndependentMask)|modNoRepeat, uint32(key))
	})
	if err != nil {
		return nil, err
	}
	return win32Handle{id: id}, nil
}

// Unregister implements Registrar.
func (w *Win32Registrar) Unregister(h Handle) error {
	handle, ok := h.(win32Handle)
	if !ok {
		return fmt.Errorf("foreign handle %T", h)
	}
	return w.runOnLoop(func() error {
		return unregisterHotKey(handle.id)
	})
}

// Close stops the message loop. Hotkeys still registered on the loop
// thread are released by the OS when the thread exits.
func (w *Win32Registrar) Close() error {
	w.mu.Lock()
	threadID, doneCh := w.threadID, w.doneCh
	w.threadID, w.doneCh, w.calls = 0, nil, nil
	w.mu.Unlock()
	if doneCh == nil {
		return nil
	}

	stopErr := postThreadMessage(threadID, wmQuit)
	timer := time.NewTimer(loopCallTimeout)
	defer timer.Stop()
	select {
	case <-doneCh:
	case <-timer.C:
		slog.Warn("[hotkey] DEBUG message loop stop timed out, goroutine/thread may leak", "threadID", threadID)
		stopErr = errors.Join(stopErr, errors.New("hotkey message loop stop timed out"))
	}
	return stopErr
}

func (w *Win32Registrar) runOnLoop(fn func() error) error {
	threadID, calls, err := w.ensureLoop()
	if err != nil {
		return err
	}
	call := loopCall{fn: fn, done: make(chan error, 1)}
	select {
	case calls <- call:
	default:
		return errors.New("hotkey loop request queue is full")
	}
	if err := postThreadMessage(threadID, wmApp); err != nil {
		return fmt.Errorf("wake hotkey loop: %w", err)
	}

	timer := time.NewTimer(loopCallTimeout)
	defer timer.Stop()
	select {
	case err := <-call.done:
		return err
	case <-timer.C:
		return errors.New("hotkey loop did not answer in time")
	}
}

func (w *Win32Registrar) ensureLoop() (uint32, chan loopCall, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.doneCh != nil {
		return w.threadID, w.calls, nil
	}

	readyCh := make(chan loopReady, 1)
	doneCh := make(chan struct{})
	calls := make(chan loopCall, 64)
	go w.runLoop(calls, readyCh, doneCh)

	ready := <-readyCh
	if ready.err != nil {
		return 0, nil, fmt.Errorf("start hotkey loop: %w", ready.err)
	}
	w.threadID, w.doneCh, w.calls = ready.threadID, doneCh, calls
	return ready.threadID, calls, nil
}

func (w *Win32Registrar) runLoop(calls chan loopCall, readyCh chan<- loopReady, doneCh chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(doneCh)

	threadID := windows.GetCurrentThreadId()
	if threadID == 0 {
		readyCh <- loopReady{err: errors.New("GetCurrentThreadId returned 0")}
		return
	}

	// PeekMessageW forces Windows to create the thread message queue so that
	// PostThreadMessageW can reach this thread before the first GetMessageW.
	var qmsg winMsg
	ret, _, peekErr := procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)
	if ret == 0 && peekErr != syscall.Errno(0) {
		slog.Warn("[hotkey] DEBUG PeekMessageW for queue init returned error", "error", peekErr)
	}
	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[hotkey] DEBUG GetMessageW returned error, exiting loop", "error", lastErr)
			return
		case 0:
			slog.Info("[hotkey] DEBUG message loop received WM_QUIT, exiting normally")
			return
		}

		switch msg.message {
		case wmHotkey:
			if handler := w.currentHandler(); handler != nil {
				handler(uint32(msg.wParam))
			}
			continue
		case wmApp:
			drainLoopCalls(calls)
			continue
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func drainLoopCalls(calls chan loopCall) {
	for {
		select {
		case call := <-calls:
			call.done <- call.fn()
		default:
			return
		}
	}
}

func registerHotKey(hotkeyID uint32, modifiers uint32, key uint32) error {
	res, _, err := procRegisterHotKey.Call(0, uintptr(hotkeyID), uintptr(modifiers), uintptr(key))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("RegisterHotKey failed")
	}
	return err
}

func unregisterHotKey(hotkeyID uint32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(hotkeyID))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("UnregisterHotKey failed")
	}
	return err
}

func postThreadMessage(threadID uint32, message uint32) error {
	if threadID == 0 {
		return errors.New("cannot post thread message: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), uintptr(message), 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
