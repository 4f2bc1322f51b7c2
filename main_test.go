package dharmarag

import (
	"os"
	"testing"

	"github.com/siherrmann/dharmarag/helper"
)

var dbPort string

func TestMain(m *testing.M) {
	os.Exit(helper.RunWithPostgres(m, &dbPort))
}
