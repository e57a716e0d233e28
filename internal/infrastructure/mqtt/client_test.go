package mqtt

import (
	"context"
	"errors"
	"testing"
)

// Tests in this file run without a broker: they cover topic construction
// and the validation paths that fail before any network activity. The
// broker-backed suite lives in integration_test.go behind the integration
// build tag.

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "SiteStatus",
			builder: func() string {
				return Topics{}.SiteStatus("my-blog")
			},
			expected: "sitewatch/site/my-blog/status",
		},
		{
			name: "SiteStatus slugs display names",
			builder: func() string {
				return Topics{}.SiteStatus("My Blog")
			},
			expected: "sitewatch/site/my-blog/status",
		},
		{
			name: "SiteReport",
			builder: func() string {
				return Topics{}.SiteReport("my-blog")
			},
			expected: "sitewatch/site/my-blog/report",
		},
		{
			name: "SiteTransition",
			builder: func() string {
				return Topics{}.SiteTransition("my-blog")
			},
			expected: "sitewatch/site/my-blog/transition",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "sitewatch/system/status",
		},
		{
			name: "CommandRefresh",
			builder: func() string {
				return Topics{}.CommandRefresh()
			},
			expected: "sitewatch/command/refresh",
		},
		{
			name: "AllSiteStatuses",
			builder: func() string {
				return Topics{}.AllSiteStatuses()
			},
			expected: "sitewatch/site/+/status",
		},
		{
			name: "AllSiteReports",
			builder: func() string {
				return Topics{}.AllSiteReports()
			},
			expected: "sitewatch/site/+/report",
		},
		{
			name: "AllSiteTransitions",
			builder: func() string {
				return Topics{}.AllSiteTransitions()
			},
			expected: "sitewatch/site/+/transition",
		},
		{
			name: "AllCommands",
			builder: func() string {
				return Topics{}.AllCommands()
			},
			expected: "sitewatch/command/+",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return Topics{}.AllTopics()
			},
			expected: "sitewatch/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestSiteSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-blog", "my-blog"},
		{"My Blog", "my-blog"},
		{"  padded  ", "padded"},
		{"a/b", "a-b"},
		{"plus+hash#", "plus-hash-"},
		{"HD Tablets", "hd-tablets"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := (Topics{}).SiteSlug(tt.in); got != tt.want {
				t.Errorf("SiteSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := &Client{}

	t.Run("empty topic", func(t *testing.T) {
		err := client.Publish("", []byte("x"), 1, false)
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
		}
	})

	t.Run("invalid qos", func(t *testing.T) {
		err := client.Publish("sitewatch/test", []byte("x"), 3, false)
		if !errors.Is(err, ErrInvalidQoS) {
			t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
		}
	})

	t.Run("oversize payload", func(t *testing.T) {
		payload := make([]byte, maxPayloadSize+1)
		err := client.Publish("sitewatch/test", payload, 1, false)
		if !errors.Is(err, ErrPublishFailed) {
			t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		err := client.Publish("sitewatch/test", []byte("x"), 1, false)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Publish() error = %v, want ErrNotConnected", err)
		}
	})
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{}
	handler := func(string, []byte) error { return nil }

	t.Run("empty topic", func(t *testing.T) {
		err := client.Subscribe("", 1, handler)
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
		}
	})

	t.Run("invalid qos", func(t *testing.T) {
		err := client.Subscribe("sitewatch/test", 3, handler)
		if !errors.Is(err, ErrInvalidQoS) {
			t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
		}
	})

	t.Run("nil handler", func(t *testing.T) {
		err := client.Subscribe("sitewatch/test", 1, nil)
		if !errors.Is(err, ErrSubscribeFailed) {
			t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		err := client.Subscribe("sitewatch/test", 1, handler)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
		}
	})
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := &Client{}

	t.Run("empty topic", func(t *testing.T) {
		err := client.Unsubscribe("")
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		err := client.Unsubscribe("sitewatch/test")
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
		}
	})
}

// =============================================================================
// State Tests (no broker required)
// =============================================================================

func TestHealthCheck_Disconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClose_ZeroClient(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := &Client{}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	client := &Client{}

	if client.HasSubscription("sitewatch/command/refresh") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}
