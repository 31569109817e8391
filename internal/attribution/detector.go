// Package attribution detects the agent and user identity attached to a
// memory when the caller doesn't supply one explicitly: the host agent's
// name (for agent_id) and the developer's git identity (for user_id),
// per spec §6.1's auto_tag_git_user / user_id_override options.
package attribution

import (
	"os"
	"os/exec"
	"strings"
	"sync"
)

var (
	cachedAgent string
	agentOnce   sync.Once

	cachedUser string
	userOnce   sync.Once
)

// DetectAgent returns the best available agent/developer name.
// Checks in order: KUZU_MEMORY_AGENT_NAME env, KUZU_MEMORY_USER env, git
// config user.name, "unknown". The git config result is cached after the
// first call.
func DetectAgent() string {
	agentOnce.Do(func() {
		cachedAgent = detectAgentUncached()
	})
	return cachedAgent
}

// DetectUser returns the user_id to attach to a memory when the caller
// didn't supply one: userIDOverride if set, else KUZU_MEMORY_USER env,
// else `git config user.email`, else "unknown" (spec §6.1
// learning.user_id_override).
func DetectUser(userIDOverride string) string {
	if userIDOverride != "" {
		return userIDOverride
	}
	userOnce.Do(func() {
		cachedUser = detectUserUncached()
	})
	return cachedUser
}

func detectAgentUncached() string {
	if name := os.Getenv("KUZU_MEMORY_AGENT_NAME"); name != "" {
		return name
	}
	if name := os.Getenv("KUZU_MEMORY_USER"); name != "" {
		return name
	}
	if name := gitConfigValue("user.name"); name != "" {
		return name
	}
	return "unknown"
}

func detectUserUncached() string {
	if name := os.Getenv("KUZU_MEMORY_USER"); name != "" {
		return name
	}
	if email := gitConfigValue("user.email"); email != "" {
		return email
	}
	return "unknown"
}

// gitConfigValue runs `git config --get <key>` and returns the trimmed
// result, or "" on any error.
func gitConfigValue(key string) string {
	out, err := exec.Command("git", "config", "--get", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
