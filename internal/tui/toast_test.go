package tui

import (
	"strings"
	"testing"

	"github.com/copperline/deskchat/internal/core"
)

func TestToastShowAndExpire(t *testing.T) {
	var toast Toast

	if toast.visible() {
		t.Error("fresh toast should not be visible")
	}

	cmd := toast.show(core.ToastError, "Message not sent", false)
	if cmd == nil {
		t.Fatal("show() should schedule an expiry")
	}
	if !toast.visible() {
		t.Error("toast should be visible after show")
	}

	toast.expire(toastExpiredMsg{shownAt: toast.shownAt})
	if toast.visible() {
		t.Error("toast should clear after its expiry fires")
	}
}

// A newer toast's display window is not cut short by the previous toast's
// expiry.
func TestStaleExpiryIgnored(t *testing.T) {
	var toast Toast

	toast.show(core.ToastError, "first", false)
	firstShownAt := toast.shownAt

	toast.show(core.ToastWarn, "second", false)
	toast.expire(toastExpiredMsg{shownAt: firstShownAt})

	if !toast.visible() {
		t.Error("stale expiry cleared the newer toast")
	}
}

func TestRetryableToastShowsAffordance(t *testing.T) {
	var toast Toast

	toast.show(core.ToastError, "Could not load conversation", true)
	if !strings.Contains(toast.View(), "ctrl+r") {
		t.Errorf("retryable toast should mention the retry key: %q", toast.View())
	}

	toast.show(core.ToastError, "Message not sent", false)
	if strings.Contains(toast.View(), "ctrl+r") {
		t.Error("non-retryable toast should not offer retry")
	}
}
