package stream

import (
	"testing"

	"github.com/shulehub/shule/core/identity"
)

func Test_CanSubscribe(t *testing.T) {
	user := identity.Actor{ID: "u1", Role: identity.RoleStudent}
	admin := identity.Actor{ID: "a1", Role: identity.RoleAdmin}
	var anonymous identity.Actor

	tests := []struct {
		name  string
		actor identity.Actor
		topic string
		want  bool
	}{
		{"own cart", user, CartTopic("u1"), true},
		{"someone else's cart", user, CartTopic("u2"), false},
		{"admin cannot read user carts", admin, CartTopic("u1"), false},
		{"anonymous cart", anonymous, CartTopic("u1"), false},
		{"own content feed", user, ContentTopic("u1"), true},
		{"someone else's content feed", user, ContentTopic("u2"), false},
		{"admin reads any content feed", admin, ContentTopic("u1"), true},
		{"admin topic for admin", admin, AdminTopic, true},
		{"admin topic for user", user, AdminTopic, false},
		{"unknown topic", user, "orders:u1", false},
		{"empty topic", user, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSubscribe(tt.actor, tt.topic); got != tt.want {
				t.Errorf("CanSubscribe(%q) = %v; want %v", tt.topic, got, tt.want)
			}
		})
	}
}

func Test_topicBuilders(t *testing.T) {
	if got := CartTopic("abc"); got != "cart:abc" {
		t.Errorf("CartTopic() = %q", got)
	}
	if got := ContentTopic("abc"); got != "content:abc" {
		t.Errorf("ContentTopic() = %q", got)
	}
}
