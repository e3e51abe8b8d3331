// Package route distributes tasks among agents using pluggable balancing
// strategies.
//
// Every balancer exposes the same contract: Route(task) returns a
// RouteResult snapshot, with a nil Agent (plus a reason code) on failure
// rather than an error, so callers decide their own fallback policy —
// queueing, escalation, or erroring. Agents in the away or offline status
// are never candidates, regardless of strategy.
//
// # Strategies
//
//   - RoundRobin: fair rotation over the roster.
//
//   - LeastBusy: lowest load ratio first, round-robin fairness among ties,
//     with locally tracked load and explicit reconciliation hooks.
//
//   - Capability: strict required-skill matching, optionally preferring
//     agents whose skillset most closely fits the task.
//
//   - PriorityQueue: priority ordering with aging so low-priority tasks
//     cannot starve.
//
//   - RuleEngine: ordered declarative or predicate rules with a default
//     strategy fallback.
//
//   - Composite: an ordered cascade of the above.
//
// AvailabilityTracker feeds balancer candidate pools from agent heartbeats.
//
// Balancers accept an optional *observe.Collector; pass the same collector
// to several balancers to aggregate their counters, or one per balancer to
// isolate them. There is no shared default.
package route
