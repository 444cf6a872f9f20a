// Package rfc6797 implements the user agent side of the
// Strict-Transport-Security header field grammar.
//
// Lines prefixed with "§" are quotes from the RFC.
package rfc6797

// §  Internet Engineering Task Force (IETF)                         J. Hodges
// §  Request for Comments: 6797                                        PayPal
// §  Category: Standards Track                                     C. Jackson
// §  ISSN: 2070-1721                                Carnegie Mellon University
// §                                                                  A. Barth
// §                                                               Google, Inc.
// §                                                             November 2012
// §
// §                 HTTP Strict Transport Security (HSTS)
// §
// §  Abstract
// §
// §     This specification defines a mechanism enabling web sites to declare
// §     themselves accessible only via secure connections and/or for users to
// §     be able to direct their user agent(s) to interact with given sites
// §     only over secure connections.  This overall policy is referred to as
// §     HTTP Strict Transport Security (HSTS).  The policy is declared by web
// §     sites via the Strict-Transport-Security HTTP response header field
// §     and/or by other means, such as user agent configuration, for example.

// HeaderName is the canonical name of the STS header field.
const HeaderName = "Strict-Transport-Security"
