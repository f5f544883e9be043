// Package changeset builds the create/update/destroy payloads JMAP's
// <Type>/set and <Type>/copy methods expect, from the Connection's
// in-memory change-set shape described in spec §3/§4.2.
package changeset
