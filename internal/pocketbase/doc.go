// Package pocketbase is a small client for the PocketBase records REST API.
//
// # Authentication
//
// [Client] authenticates lazily against an auth collection (by default "_superusers")
// with password credentials. The returned token is sent in the Authorization header of
// every subsequent request. Without credentials requests are sent anonymously and rely
// on the collection's API rules.
//
// # Records
//
// The client covers the calls the seeders need:
//   - [Client.FindByResourceID] : filtered lookup by the synthetic resourceId key
//   - [Client.List] and [Client.Count] : paginated listing and totals
//   - [Client.Create], [Client.Update], [Client.Delete] : record mutations
//   - [Client.Health] : server health check
//
// # Errors
//
// Non-2xx responses are returned as [*APIError], which wraps [shared.ErrAPIRequest].
// A 404, or an empty filtered lookup, wraps [shared.ErrRecordNotFound].
//
// Requests are throttled client-side with a token bucket limiter. There are no retries.
package pocketbase
