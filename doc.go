// Package flow is a demand-driven stream library. Publishers emit values only as far as their subscribers have
// requested them, and a subscription is terminated at most once, by completion, failure or cancellation.
//
// The work is split across packages:
//
//	demand          request accounting with saturating arithmetic
//	observe         the publisher and subscriber protocol, observables and source constructors
//	operator        transformations, fan-in combinators, error recovery and time based operators
//	subject         hot publishers that multicast to every current subscriber
//	store           keyed state with optimistic concurrency, in memory, on Redis or on Postgres
//	scheduler       wall clock and virtual time for timed operators
//	instrumentation pluggable logging and metrics
//	config          settings for the flow command
package flow
