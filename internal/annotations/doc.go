// Package annotations persists the clerk-entered fields that the dossier database
// does not hold: sanitation status, case status, a free-text comment and the
// DDT-sent flag.
//
// The store is a flat JSON object keyed by dossier identifier. Every mutation rewrites
// the whole document through a temporary file and an atomic rename, so a crash loses
// at most the edit in flight and never the entries written before it.
//
// A missing document is an empty store. An unparseable document is reported as a
// *DecodeError but the returned store is empty and usable; the damaged file is kept
// aside as <path>.corrupt for the offline Repair utility.
package annotations
