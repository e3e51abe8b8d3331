// Package config loads the dispatch YAML profile: resilience thresholds,
// routing strategy, webhook registrations, and telemetry settings.
//
// Durations are Go duration strings ("30s", "5m"). Webhook URLs and
// secrets support strict ${VAR} environment expansion; a referenced
// variable missing from the environment fails the load, and $$ escapes a
// literal dollar sign.
//
//	profile, err := config.Load("dispatch.yaml")
//	if err != nil {
//	    return err
//	}
//	tracker := resilience.NewSLATracker(profile.Resilience.SLAConfig())
//	balancer, err := profile.NewBalancer(collector)
package config
