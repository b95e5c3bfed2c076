package httputil_test

import (
	"fmt"
	"net/http/httptest"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/httputil"
)

func ExampleWriteError() {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, errors.Validation("x_position"))

	fmt.Println(rec.Code)
	fmt.Print(rec.Body.String())
	// Output:
	// 422
	// {"error":{"code":"VALIDATION_FAILED","message":"invalid or missing fields: x_position","fields":["x_position"]}}
}
