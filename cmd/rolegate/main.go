// @title           rolegate API
// @version         1.0
// @description     Exam portal approvals and license management.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"os"

	"github.com/rolegate/rolegate/cmd/rolegate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
