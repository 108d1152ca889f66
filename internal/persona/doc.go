// Package persona defines the two conversational agents and the fixed
// identity each one speaks with.
//
// A [Registry] maps every [AgentID] to exactly one [Persona] and is never
// mutated after construction. The registry also fixes the rotation order:
// the first agent in [Registry.Order] opens the conversation, and
// [Registry.Next] advances the turn pointer modulo the number of agents.
//
// Personas default to the built-in pair returned by [Defaults]. A YAML file
// can override names, avatars, and system prompts:
//
//	opener: a
//	personas:
//	  a:
//	    name: Alex
//	    avatar: "🧠"
//	    system_prompt: |
//	      You are Alex...
//	  b:
//	    name: Jordan
//	    system_prompt: |
//	      You are Jordan...
package persona
