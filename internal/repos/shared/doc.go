// Package shared defines the collaborator interfaces and value types shared by repository services.
package shared
