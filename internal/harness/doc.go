// Package harness runs support-tier reconciliation scenarios end to end.
//
// Each scenario seeds a fresh fake petitions API (package apitest) with a
// petition and its baseline tiers, reconciles an edited tier set against it
// through the real HTTP client, and checks the outcome: the requests sent,
// the steps reported, the tiers left on the server, and the fewest and most
// tiers the petition held along the way.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: replace_only_tier
//	description: "Swapping the only tier creates the new one first"
//	baseline:
//	  - { title: Bronze, description: "Entry level", cost: 5 }
//	supporters:
//	  - { tier: 1, message: "Good luck" }
//	fail:
//	  - { method: PATCH, path: /petitions/1/supportTiers/2, status: 500, message: "Internal Server Error" }
//	edited:
//	  - { title: Silver, description: "Mid level", cost: 10 }
//	expect:
//	  error: ""
//	  tiers: [Silver]
//	  min_tiers: 1
//	  max_tiers: 2
//	assertions:
//	  - type: step_order
//	    steps: ["create Silver", "delete Bronze"]
//
// Baseline tiers are created in order with IDs 1, 2, 3; edited tiers refer
// to them by those IDs. The petition is always ID 1.
//
// # Assertion Types
//
//   - step_contains: a report step with the given op, title and outcome exists
//   - step_order: applied steps ("op title") appear in the given order
//   - call_count: a request ("METHOD /path") was sent exactly N times
//
// # Determinism
//
// Every run uses a new server, so IDs, tokens and timestamps repeat exactly
// and traces can be compared against golden files with RunWithGolden.
//
// # Usage
//
//	sc, err := harness.LoadScenario("testdata/scenarios/replace_only_tier.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, sc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
