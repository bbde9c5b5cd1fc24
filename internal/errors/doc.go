// Package errors provides the coded, actionable errors panelnav reports
// for configuration and command-line failures.
//
// Each code maps to a registered template with a short message, a longer
// explanation and, where one exists, a suggestion:
//
//	err := errors.New("P003").
//	    WithDetail(`panelUrl "ftp://panel" must use http or https`).
//	    Wrap(cause)
//
//	fmt.Fprint(os.Stderr, err.Format())
//	// ERROR P003: Invalid panel URL
//	//
//	//   panelUrl "ftp://panel" must use http or https
//	//
//	//   Hint: Set panelUrl in panelnav.json or PANELNAV_PANEL_URL.
//
// Runtime resolution never produces these errors: route problems become
// screens, not failures.
package errors
