/*
Package server exposes the custody calendar over a JSON HTTP API and an
iCalendar feed.

# Basic Usage

	store := memory.New()
	svc := calendar.New(store, nil, calendar.DefaultServiceConfig)
	srv, err := server.New(svc, server.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", auth.Middleware(sessions, "/healthz")(srv))

# URL Scheme

All family resources live below /families/{familyID}:
  - /calendar, /calendar/week, /calendar/month, /calendar/upcoming - day views
  - /calendar.ics - subscription feed
  - /handovers - custody changes in a range
  - /patterns, /patterns/active - pattern history and the active pattern
  - /exceptions, /exceptions/{exceptionID}/accept|reject - exception workflow

Dates are ISO calendar dates (2006-01-02). Write requests need an authenticated
principal in the request context, which auth.Middleware provides.
*/
package server
