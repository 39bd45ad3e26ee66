// Package model defines the provider-neutral language model abstraction used
// by agents and the crew manager. Requests and responses are normalized so
// downstream logic never branches per vendor; adapters for concrete providers
// live in the model/anthropic and model/openai subpackages.
//
// Generation is synchronous: the orchestration engine awaits every model call
// to completion before taking its next step, so Generate returns one final
// Response rather than a stream.
package model
