// Package main SFlix Server API
//
//	@title						SFlix Server API
//	@version					1.0
//	@description				Video subscription backend: plans, checkout, payment verification and the video catalogue.
//
//	@host						localhost:5000
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Auth
//	@tag.description			Sign-up and sign-in
//
//	@tag.name					User
//	@tag.description			Profile of the signed-in user
//
//	@tag.name					Plan
//	@tag.description			Subscription plan catalogue
//
//	@tag.name					Subscription
//	@tag.description			Checkout, payment verification and entitlement
//
//	@tag.name					Video
//	@tag.description			Video catalogue
//
//	@tag.name					Admin
//	@tag.description			Administration
package main
