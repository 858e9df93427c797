// Package management implements the console's company-management views on top
// of the backend client: dashboard, employees, leave requests, contracts,
// events, calendar, payroll and analytics.
//
// Every view runs with the operator's bearer token. Identities with a linked
// employee profile are restricted: they only see and change their own leave
// requests and cannot open payroll or analytics.
package management
