// Package orchestrator drives lead sources under budget admission control.
//
// A run walks the account's eligible sources in order. Before each source it
// asks the budget engine for admission, fetches on approval, and records the
// actual fetched quantity as cost. A budget denial ends the run with the
// leads collected so far; a source failure is logged and skipped. Fetched
// leads are validated (an email or a phone is required) and deduplicated on
// their strongest identifier (phone, else email, else name), first seen
// wins.
//
// Which source classes are eligible depends on the account's daily budget,
// read once at the start of the run: directory sources always run, social
// sources need at least $2/day, and maps and custom sources need at least
// $10/day.
package orchestrator
