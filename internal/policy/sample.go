package policy

// SamplePolicy is written by `policy init` as a starting point for workspace rules.
const SamplePolicy = `# gpt-worker command policy
# Rules here are combined with the built-in allow-list policy.
# Learn more: https://www.openpolicyagent.org/docs/latest/policy-language/
#
# input.command.line       the raw command line
# input.command.name       first whitespace-separated field
# input.command.args       remaining fields
# input.allowed_commands   configured allow-list
# input.workspace          workspace root

package gptworker.policy

import rego.v1

# Block path arguments that leave the workspace.
deny contains msg if {
	some arg in input.command.args
	not startswith(arg, "-")
	contains(arg, "/")
	not gptworker.within(input.workspace, arg)
	msg := sprintf("argument '%s' points outside the workspace", [arg])
}

# Never publish from an unattended run.
deny contains msg if {
	input.command.name == "git"
	"push" in input.command.args
	msg := "git push is not allowed"
}

warn contains msg if {
	input.command.name in {"mv", "cp"}
	msg := sprintf("'%s' may overwrite files", [input.command.line])
}
`

// SamplePolicyTest is written next to SamplePolicy by `policy init`.
const SamplePolicyTest = `package gptworker.policy

import rego.v1

test_ls_is_approved if {
	approved with input as {"command": {"name": "ls", "args": []}, "allowed_commands": ["ls"], "workspace": "/w"}
}

test_git_push_denied if {
	count(deny) > 0 with input as {"command": {"name": "git", "args": ["push"]}, "allowed_commands": ["git"], "workspace": "/w"}
}

test_escape_denied if {
	count(deny) > 0 with input as {"command": {"name": "cat", "args": ["../secret"]}, "allowed_commands": ["cat"], "workspace": "/w"}
}
`
