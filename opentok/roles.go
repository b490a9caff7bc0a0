package opentok

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Role determines what a token holder may do inside a session
type Role string

const (
	// RoleSubscriber can only subscribe to streams
	RoleSubscriber Role = "subscriber"
	// RolePublisher can publish, subscribe and signal
	RolePublisher Role = "publisher"
	// RoleModerator can additionally force other clients to disconnect or unpublish
	RoleModerator Role = "moderator"
)

func (r Role) Validate() error {
	return validation.Validate(string(r),
		validation.In(string(RoleSubscriber), string(RolePublisher), string(RoleModerator)).
			Error("must be one of subscriber, publisher, moderator"),
	)
}

// MediaMode determines how streams are routed between clients
type MediaMode string

const (
	// MediaModeRelayed sends streams peer to peer where possible
	MediaModeRelayed MediaMode = "relayed"
	// MediaModeRouted sends streams through the media router
	MediaModeRouted MediaMode = "routed"
)

func (m MediaMode) Validate() error {
	return validation.Validate(string(m),
		validation.In(string(MediaModeRelayed), string(MediaModeRouted)).
			Error("must be either relayed or routed"),
	)
}

// p2pPreference is the form value the session endpoint expects
func (m MediaMode) p2pPreference() string {
	if m == MediaModeRouted {
		return "disabled"
	}
	return "enabled"
}

type ArchiveMode string

const (
	ArchiveModeManual ArchiveMode = "manual"
	ArchiveModeAlways ArchiveMode = "always"
)

func (a ArchiveMode) Validate() error {
	return validation.Validate(string(a),
		validation.In(string(ArchiveModeManual), string(ArchiveModeAlways)).
			Error("must be either manual or always"),
	)
}

// OutputMode is how an archive lays out the streams it records
type OutputMode string

const (
	OutputModeComposed   OutputMode = "composed"
	OutputModeIndividual OutputMode = "individual"
)

func (o OutputMode) Validate() error {
	return validation.Validate(string(o),
		validation.In(string(OutputModeComposed), string(OutputModeIndividual)).
			Error("must be either composed or individual"),
	)
}
