package supervisor

import (
	"context"
	"log/slog"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"winewarden/errors"
	"winewarden/internal/types"
	"winewarden/internal/watch"
)

// The poll timeout doubles as the heartbeat for child-liveness checks:
// 250ms while live monitoring is enabled (so the loop also has a cadence
// to re-scan /proc and diff /proc/net), 100ms otherwise.
const (
	pollIntervalLiveMS    = 250
	pollIntervalDefaultMS = 100
)

// Loop is the single-threaded supervisor event pump: the sole owner of
// the notify descriptor for the session's duration, draining
// exactly one notification per readable wakeup and any queued auxiliary
// watcher events each iteration, in fixed fs -> proc -> net order.
type Loop struct {
	NotifyFD int
	PID      int
	Handler  *Handler
	Watchers []watch.Drainer // in drain order: fs, proc, net

	// PollIntervalMS overrides the computed poll timeout; zero selects
	// pollIntervalLiveMS when LiveMonitoring is true, else pollIntervalDefaultMS.
	PollIntervalMS int
	LiveMonitoring bool

	Logger *slog.Logger

	// OnAuxEvent is invoked for every auxiliary watcher event the loop
	// routes to the policy engine, after the decision is made.
	OnAuxEvent func(source string, attempt types.AccessAttempt, decision types.PolicyDecision)
}

// Run drives the loop until the child (PID) has exited or ctx is
// cancelled. It never returns while a notification is pending unanswered:
// every recv is paired with a send before the next recv, since the kernel
// keeps the child blocked until the response lands.
func (l *Loop) Run(ctx context.Context) error {
	timeout := l.pollTimeoutMS()

	for {
		select {
		case <-ctx.Done():
			l.closeNotifyFD()
			l.reapChild()
			return ctx.Err()
		default:
		}

		readable, err := l.pollNotify(timeout)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			if l.Logger != nil {
				l.Logger.Warn("poll on notify descriptor failed", "err", err)
			}
		} else if readable {
			if err := l.processOne(); err != nil && l.Logger != nil {
				l.Logger.Warn("notification handling failed", "err", err)
			}
		}

		if l.LiveMonitoring {
			l.drainAuxiliary()
		}

		if exited, _ := l.childExited(); exited {
			return nil
		}
	}
}

func (l *Loop) pollTimeoutMS() int {
	if l.PollIntervalMS > 0 {
		return l.PollIntervalMS
	}
	if l.LiveMonitoring {
		return pollIntervalLiveMS
	}
	return pollIntervalDefaultMS
}

// pollNotify waits up to timeoutMS for the notify descriptor to become
// readable.
func (l *Loop) pollNotify(timeoutMS int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(l.NotifyFD), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMS)
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

// processOne receives exactly one notification, hands it to the Handler,
// and sends the response.
func (l *Loop) processOne() error {
	var notif types.SeccompNotif
	if err := l.ioctl(unix.SECCOMP_IOCTL_NOTIF_RECV, unsafe.Pointer(&notif)); err != nil {
		return errors.Wrap(err, errors.ErrKernelNotify, "notif-recv")
	}

	resp := l.Handler.Handle(l.PID, &notif)

	if err := l.ioctl(unix.SECCOMP_IOCTL_NOTIF_SEND, unsafe.Pointer(&resp)); err != nil {
		return errors.Wrap(err, errors.ErrKernelNotify, "notif-send")
	}
	return nil
}

func (l *Loop) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(l.NotifyFD), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// drainAuxiliary drains each watcher in order (fs, proc, net), routing
// every surfaced event to the policy engine exactly as a notification
// would be.
func (l *Loop) drainAuxiliary() {
	for _, w := range l.Watchers {
		if w == nil {
			continue
		}
		for _, ev := range w.Drain() {
			var decision types.PolicyDecision
			switch {
			case ev.Source == "proc":
				// Process-spawn events carry the process name, not a
				// filesystem path, and go through the spawn rules.
				decision = l.Handler.Policy.EvaluateProcess(ev.Attempt.Target.Path)
			case ev.Attempt.Target.Kind == types.TargetNetwork:
				decision = l.Handler.Policy.EvaluateNetwork(ev.Attempt.Target.Network)
			case ev.Attempt.Target.Kind == types.TargetPath:
				decision = l.Handler.Policy.EvaluatePath(ev.Attempt.Target.Path, ev.Attempt.Kind == types.AccessWrite)
			default:
				decision = types.PolicyDecision{Action: types.ActionAllow}
			}
			if l.Handler.Record != nil {
				l.Handler.Record(ev.Attempt, decision)
			}
			if l.OnAuxEvent != nil {
				l.OnAuxEvent(ev.Source, ev.Attempt, decision)
			}
		}
	}
}

// childExited checks child liveness without blocking.
func (l *Loop) childExited() (bool, error) {
	var status syscall.WaitStatus
	pid, err := syscall.Wait4(l.PID, &status, syscall.WNOHANG, nil)
	if err != nil {
		return false, err
	}
	return pid == l.PID, nil
}

// reapChild blocks until the child has exited, used on cancellation.
func (l *Loop) reapChild() {
	var status syscall.WaitStatus
	syscall.Wait4(l.PID, &status, 0, nil)
}

func (l *Loop) closeNotifyFD() {
	syscall.Close(l.NotifyFD)
}
