// Package envist parses typed .env-style configuration files: key/value
// declarations with optional inline type annotations, variable references
// between declarations, and serialization back to text.
//
// File format:
//
//	HOST <str> = localhost
//	PORT <int> = 8080
//	URL <str> = ${HOST}:${PORT}      # references resolve to earlier keys
//	NUMBERS <list<int>> = 1,2,3,4,5
//	LIMITS <dict<str, int>> = timeout=30,retries=3
//
// Annotations support nesting (list<int>, dict<str, list<float>>) with the
// type names str, int, float, bool, list, array, tuple, set, dict, json,
// csv and comma_separated (case-insensitive). Values referenced with
// ${KEY} are substituted with the referenced entry's string form; cycles
// are detected and rejected at load time.
//
// Quick start:
//
//	env, err := envist.New(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, _ := env.Int64("PORT")
//	numbers, _ := env.Get("NUMBERS") // []any{int64(1), ...}
//	debug, _ := env.GetAs("DEBUG", "bool")
//
// Or with the builder:
//
//	env := envist.NewBuilder().
//	    WithPath("app.env").
//	    WithAcceptEmpty(true).
//	    WithValidator(func(e *envist.Env) error {
//	        if !e.Has("PORT") {
//	            return errors.New("PORT is required")
//	        }
//	        return nil
//	    }).
//	    MustBuild()
//
// Errors wrap the sentinel kinds ErrParse, ErrType, ErrCast, ErrKeyNotFound
// and ErrFileNotFound; match them with errors.Is.
//
// An Env is not safe for concurrent use. Operations run synchronously to
// completion; callers sharing an instance across goroutines must provide
// their own mutual exclusion.
package envist
