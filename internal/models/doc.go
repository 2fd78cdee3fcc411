// Package models defines the data shapes shared by the seeding toolkit.
//
// There are three groups of types:
//
// 1. Fixture data: records decoded from the JSON fixture files
//   - [FixtureRecord] : a plain key/value object keyed by a human-readable "id"
//
// 2. Backend data: records as returned by the PocketBase records API
//   - [Record] : a flat PocketBase record (system fields plus domain fields)
//   - [ListResult] : one page of a records listing
//
// 3. Persistent entities: rows of the local run history database
//   - [SeedRun] : one seeder invocation with its tallies
//   - [SeedRunError] : a per-record failure attached to a run
package models
