// Package config loads database, logging and DAO declarations from a YAML
// file.
//
// Example file:
//
//	database:
//	  dialect: postgres
//	  dsn: postgres://app@localhost/app?sslmode=disable
//	logging:
//	  level: debug
//	  format: text
//	daos:
//	  - name: PersonDAO
//	    declarations:
//	      - kind: log_sql
//	        level: info
//	    methods:
//	      - name: Insert
//	        sql: INSERT INTO people (first_name, created) VALUES (:p.firstName, :created)
//	        declarations:
//	          - kind: capitalize
//	            bindings: [p.firstName]
//	          - kind: valid
//	            param: p
//	          - kind: timestamp_fields
//	            param: p
//
// Environment variables override the file:
//
//	STMTHOOK_DATABASE_DIALECT
//	STMTHOOK_DATABASE_DSN
//	STMTHOOK_LOG_LEVEL
//	STMTHOOK_LOG_FORMAT
package config
