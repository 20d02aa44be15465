package main

// Version is the current release, compared against the published
// latest by the version checker.
const Version = "1.2.0"
