package opentok

import "net/url"

// Endpoints builds the absolute urls of the REST API for one project. Ids are escaped as
// single path segments.
type Endpoints struct {
	APIURL string
	APIKey string
}

func NewEndpoints(apiURL, apiKey string) Endpoints {
	return Endpoints{APIURL: apiURL, APIKey: apiKey}
}

func (e Endpoints) SessionURL() string {
	return e.APIURL + "/session/create"
}

// ArchiveURL returns the archive collection url, or the url of a single archive when
// archiveID is set
func (e Endpoints) ArchiveURL(archiveID string) string {
	u := e.projectURL() + "/archive"
	if archiveID != "" {
		u += "/" + url.PathEscape(archiveID)
	}
	return u
}

func (e Endpoints) StopArchiveURL(archiveID string) string {
	return e.ArchiveURL(archiveID) + "/stop"
}

// SignalingURL targets every connection of the session, or a single one when
// connectionID is set
func (e Endpoints) SignalingURL(sessionID, connectionID string) string {
	u := e.sessionURL(sessionID)
	if connectionID != "" {
		u += "/connection/" + url.PathEscape(connectionID)
	}
	return u + "/signal"
}

func (e Endpoints) StreamURL(sessionID, streamID string) string {
	u := e.sessionURL(sessionID) + "/stream"
	if streamID != "" {
		u += "/" + url.PathEscape(streamID)
	}
	return u
}

func (e Endpoints) ForceDisconnectURL(sessionID, connectionID string) string {
	return e.sessionURL(sessionID) + "/connection/" + url.PathEscape(connectionID)
}

func (e Endpoints) projectURL() string {
	return e.APIURL + "/v2/project/" + url.PathEscape(e.APIKey)
}

func (e Endpoints) sessionURL(sessionID string) string {
	return e.projectURL() + "/session/" + url.PathEscape(sessionID)
}
