// Package triage is the shared alert-triage pipeline: it renders an alert
// into a prompt, asks an inference Provider for an analysis, classifies the
// analysis into a Verdict and hands the Outcome to one or more Sinks.
//
// Alert acquisition (pipe, pull, push) and reporting are pluggable; the
// pipeline itself keeps no state between alerts.
package triage
