// Command api serves the Test Stack API.
//
//	api                 # same as "api serve"
//	api serve           # HTTP server + background jobs
//	api seed            # reset the database to the sample data set
//	api contracts       # print the published contract document
//	api contracts --openapi
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
